package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
)

type pastDueReader interface {
	FindUnreturnedPastDue(ctx context.Context, asOf time.Time, lookback time.Duration) ([]models.Booking, error)
}

type overdueAssessor interface {
	SweepOverdue(ctx context.Context, booking models.Booking, asOf time.Time) error
}

// OverdueSweepJobParams configure the overdue booking sweep.
type OverdueSweepJobParams struct {
	Logger    *logger.Logger
	Bookings  pastDueReader
	Penalties overdueAssessor
	Lookback  time.Duration
}

// overdueSweepJob walks confirmed bookings past their end date that were
// never returned and keeps their provisional late fines current.
type overdueSweepJob struct {
	logg      *logger.Logger
	bookings  pastDueReader
	penalties overdueAssessor
	lookback  time.Duration
	now       func() time.Time
}

// NewOverdueSweepJob builds the sweep job.
func NewOverdueSweepJob(params OverdueSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking reader required")
	}
	if params.Penalties == nil {
		return nil, fmt.Errorf("penalty service required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	return &overdueSweepJob{
		logg:      params.Logger,
		bookings:  params.Bookings,
		penalties: params.Penalties,
		lookback:  lookback,
		now:       time.Now,
	}, nil
}

func (j *overdueSweepJob) Name() string { return "overdue-sweep" }

func (j *overdueSweepJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	overdue, err := j.bookings.FindUnreturnedPastDue(ctx, asOf, j.lookback)
	if err != nil {
		return fmt.Errorf("query overdue bookings: %w", err)
	}
	if len(overdue) == 0 {
		return nil
	}

	var errs []error
	swept := 0
	for _, booking := range overdue {
		if err := j.penalties.SweepOverdue(ctx, booking, asOf); err != nil {
			errs = append(errs, fmt.Errorf("sweep booking %s: %w", booking.ID, err))
			continue
		}
		swept++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"overdue": len(overdue),
		"swept":   swept,
	})
	j.logg.Info(logCtx, "overdue sweep finished")
	return multierr.Combine(errs...)
}
