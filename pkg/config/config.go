package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Gateway      GatewayConfig
	Penalty      PenaltyConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KITLOOP_APP_ENV" required:"true"`
	Port         string `envconfig:"KITLOOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KITLOOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KITLOOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KITLOOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KITLOOP_DB_DSN"`
	Driver string `envconfig:"KITLOOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KITLOOP_DB_HOST"`
	LegacyPort     int    `envconfig:"KITLOOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KITLOOP_DB_USER"`
	LegacyPassword string `envconfig:"KITLOOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"KITLOOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"KITLOOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KITLOOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KITLOOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KITLOOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KITLOOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KITLOOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KITLOOP_REDIS_ADDR"`
	Password     string        `envconfig:"KITLOOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"KITLOOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KITLOOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KITLOOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KITLOOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KITLOOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KITLOOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// GatewayConfig holds the shared-secret contract with the payment gateway.
// The service never stores gateway credentials beyond this HMAC secret.
type GatewayConfig struct {
	HMACSecret     string        `envconfig:"KITLOOP_GATEWAY_HMAC_SECRET" required:"true"`
	OrderIDPrefix  string        `envconfig:"KITLOOP_GATEWAY_ORDER_PREFIX" default:"kl_order"`
	IdempotencyTTL time.Duration `envconfig:"KITLOOP_GATEWAY_IDEMPOTENCY_TTL" default:"72h"`
}

// PenaltyConfig supplies fallback fee parameters for units without a fee policy row.
type PenaltyConfig struct {
	DefaultGraceMinutes    int    `envconfig:"KITLOOP_PENALTY_DEFAULT_GRACE_MINUTES" default:"30"`
	DefaultLateFeePerHour  string `envconfig:"KITLOOP_PENALTY_DEFAULT_LATE_FEE_PER_HOUR" default:"100"`
	SweepIntervalMinutes   int    `envconfig:"KITLOOP_PENALTY_SWEEP_INTERVAL_MINUTES" default:"60"`
	SweepLookbackDays      int    `envconfig:"KITLOOP_PENALTY_SWEEP_LOOKBACK_DAYS" default:"30"`
	MaxOverdueHoursCharged int    `envconfig:"KITLOOP_PENALTY_MAX_OVERDUE_HOURS" default:"720"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KITLOOP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KITLOOP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"KITLOOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KITLOOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"KITLOOP_PUBSUB_NOTIFICATION_TOPIC" default:"kl-notification-events"`
	NotificationSubscription string `envconfig:"KITLOOP_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KITLOOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KITLOOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KITLOOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
