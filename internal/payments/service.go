package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type bookingReader interface {
	FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
}

// BookingConfirmer transitions a pending booking to confirmed inside the
// verification transaction.
type BookingConfirmer interface {
	ConfirmPaymentTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, now time.Time) error
}

type signatureVerifier interface {
	MintOrderID() string
	Verify(orderID, paymentID, signature string) bool
}

type replayGuard interface {
	CheckAndMark(ctx context.Context, orderID, paymentID string) (bool, error)
	Release(ctx context.Context, orderID, paymentID string) error
}

// Service owns payment intents and the gateway verification protocol.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentView, error)
	GetIntentForBooking(ctx context.Context, bookingID, customerID uuid.UUID) (*IntentView, error)
	VerifyCallback(ctx context.Context, input VerifyInput) (*IntentView, error)
	FailCallback(ctx context.Context, input FailInput) error
}

type service struct {
	repo      Repository
	bookings  bookingReader
	confirmer BookingConfirmer
	verifier  signatureVerifier
	guard     replayGuard
	tx        txRunner
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the payments service. The guard may be nil; replays are
// then caught by intent state alone.
func NewService(repo Repository, bookings bookingReader, confirmer BookingConfirmer, verifier signatureVerifier, guard replayGuard, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if bookings == nil {
		return nil, fmt.Errorf("booking reader required")
	}
	if confirmer == nil {
		return nil, fmt.Errorf("booking confirmer required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		bookings:  bookings,
		confirmer: confirmer,
		verifier:  verifier,
		guard:     guard,
		tx:        tx,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// CreateIntent opens a payment for a pending booking. Calling it again
// before verification returns the existing intent instead of minting a new
// gateway order.
func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentView, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	booking, err := s.bookings.FindBooking(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking.CustomerID != input.CustomerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to customer")
	}
	if booking.Status != enums.BookingStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment requires a pending booking")
	}

	existing, err := s.repo.FindIntentByBooking(ctx, input.BookingID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if existing != nil && existing.Status == enums.PaymentIntentStatusCreated {
		return intentView(existing), nil
	}

	intent := &models.PaymentIntent{
		BookingID:      booking.ID,
		Amount:         booking.TotalPrice,
		GatewayOrderID: s.verifier.MintOrderID(),
		Status:         enums.PaymentIntentStatusCreated,
	}
	if intent, err = s.repo.CreateIntent(ctx, intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	if s.logg != nil {
		logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
		s.logg.Info(logCtx, "payment intent created")
	}
	return intentView(intent), nil
}

func (s *service) GetIntentForBooking(ctx context.Context, bookingID, customerID uuid.UUID) (*IntentView, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.bookings.FindBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if customerID != uuid.Nil && booking.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to customer")
	}
	intent, err := s.repo.FindIntentByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment intent for booking")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	return intentView(intent), nil
}

// VerifyCallback processes the gateway's payment-completion callback. The
// signature check runs before any state is touched; a replay of an already
// verified pair returns the verified intent without side effects.
func (s *service) VerifyCallback(ctx context.Context, input VerifyInput) (*IntentView, error) {
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order and payment ids required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount required")
	}
	if !s.verifier.Verify(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "signature verification failed")
	}

	intent, err := s.repo.FindIntentByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown gateway order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if replay, err := s.replayResult(intent, input.GatewayPaymentID); replay != nil || err != nil {
		return replay, err
	}
	if input.BookingID != uuid.Nil && input.BookingID != intent.BookingID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "gateway order belongs to a different booking")
	}
	if !input.Amount.Equal(intent.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "paid amount does not match the intent").
			WithDetails(map[string]any{"expected": intent.Amount, "received": input.Amount})
	}

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, input.GatewayOrderID, input.GatewayPaymentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "callback replay guard")
		}
		if seen {
			// Another worker holds or finished this callback; report the
			// current state.
			current, err := s.repo.FindIntentByGatewayOrderID(ctx, input.GatewayOrderID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
			}
			if replay, err := s.replayResult(current, input.GatewayPaymentID); replay != nil || err != nil {
				return replay, err
			}
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "callback already in flight")
		}
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.FindIntentByGatewayOrderIDForUpdate(ctx, tx, input.GatewayOrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment intent")
		}
		switch locked.Status {
		case enums.PaymentIntentStatusVerified:
			return nil
		case enums.PaymentIntentStatusCreated:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent already failed")
		}

		err = repo.UpdateIntent(ctx, locked.ID, map[string]any{
			"status":             enums.PaymentIntentStatusVerified,
			"gateway_payment_id": input.GatewayPaymentID,
			"verified_at":        now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify payment intent")
		}
		return s.confirmer.ConfirmPaymentTx(ctx, tx, locked.BookingID, now)
	})
	if err != nil {
		if s.guard != nil {
			_ = s.guard.Release(ctx, input.GatewayOrderID, input.GatewayPaymentID)
		}
		return nil, err
	}

	intent.Status = enums.PaymentIntentStatusVerified
	intent.GatewayPaymentID = &input.GatewayPaymentID
	intent.VerifiedAt = &now

	if s.logg != nil {
		logCtx := s.logg.WithBookingID(ctx, intent.BookingID.String())
		s.logg.Info(logCtx, "payment verified")
	}
	return intentView(intent), nil
}

// replayResult returns the verified view when the callback repeats a pair
// that already settled, and rejects a different payment id for a settled
// order.
func (s *service) replayResult(intent *models.PaymentIntent, paymentID string) (*IntentView, error) {
	if intent.Status != enums.PaymentIntentStatusVerified {
		return nil, nil
	}
	if intent.GatewayPaymentID != nil && *intent.GatewayPaymentID == paymentID {
		return intentView(intent), nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already verified with a different payment")
}

func (s *service) FailCallback(ctx context.Context, input FailInput) error {
	if input.GatewayOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := repo.FindIntentByGatewayOrderIDForUpdate(ctx, tx, input.GatewayOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "unknown gateway order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment intent")
		}
		switch intent.Status {
		case enums.PaymentIntentStatusFailed:
			return nil
		case enums.PaymentIntentStatusCreated:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent already verified")
		}
		updates := map[string]any{"status": enums.PaymentIntentStatusFailed}
		if input.Reason != "" {
			updates["failure_reason"] = input.Reason
		}
		return repo.UpdateIntent(ctx, intent.ID, updates)
	})
}

func intentView(intent *models.PaymentIntent) *IntentView {
	return &IntentView{
		IntentID:       intent.ID,
		BookingID:      intent.BookingID,
		Amount:         intent.Amount,
		GatewayOrderID: intent.GatewayOrderID,
		Status:         intent.Status,
		VerifiedAt:     intent.VerifiedAt,
		CreatedAt:      intent.CreatedAt,
	}
}
