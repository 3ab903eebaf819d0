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
	Fees         FeesConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Gateway      GatewayConfig
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
	Env          string `envconfig:"CANTEENX_APP_ENV" required:"true"`
	Port         string `envconfig:"CANTEENX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CANTEENX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CANTEENX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CANTEENX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CANTEENX_DB_DSN"`
	Driver string `envconfig:"CANTEENX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CANTEENX_DB_HOST"`
	LegacyPort     int    `envconfig:"CANTEENX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CANTEENX_DB_USER"`
	LegacyPassword string `envconfig:"CANTEENX_DB_PASSWORD"`
	LegacyName     string `envconfig:"CANTEENX_DB_NAME"`
	LegacySSLMode  string `envconfig:"CANTEENX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CANTEENX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CANTEENX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CANTEENX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CANTEENX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CANTEENX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CANTEENX_REDIS_ADDR"`
	Password     string        `envconfig:"CANTEENX_REDIS_PASSWORD"`
	DB           int           `envconfig:"CANTEENX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CANTEENX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CANTEENX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CANTEENX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CANTEENX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CANTEENX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// FeesConfig carries the platform commission and tax knobs. Rates are in
// basis points so money math stays integral until the final division.
type FeesConfig struct {
	PlatformFeeBps int `envconfig:"CANTEENX_PLATFORM_FEE_BPS" default:"500"`
	GSTRateBps     int `envconfig:"CANTEENX_GST_RATE_BPS" default:"1800"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CANTEENX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CANTEENX_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"CANTEENX_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CANTEENX_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CANTEENX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CANTEENX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"CANTEENX_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription       string `envconfig:"CANTEENX_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"CANTEENX_PUBSUB_NOTIFICATION_TOPIC" default:"cx-notification-events"`
	NotificationSubscription string `envconfig:"CANTEENX_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CANTEENX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CANTEENX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CANTEENX_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig tunes the scheduled settlement sweep and outbox retention.
type CronConfig struct {
	TickInterval    time.Duration `envconfig:"CANTEENX_CRON_TICK_INTERVAL" default:"1m"`
	OutboxRetention time.Duration `envconfig:"CANTEENX_OUTBOX_RETENTION" default:"336h"`
}

// GatewayConfig identifies and credentials the payment gateway. Provider
// "fake" swaps in an in-memory gateway for dev and tests.
type GatewayConfig struct {
	Provider      string        `envconfig:"CANTEENX_GATEWAY_PROVIDER" default:"razorpay"`
	KeyID         string        `envconfig:"CANTEENX_GATEWAY_KEY_ID"`
	KeySecret     string        `envconfig:"CANTEENX_GATEWAY_KEY_SECRET"`
	BaseURL       string        `envconfig:"CANTEENX_GATEWAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	WebhookSecret string        `envconfig:"CANTEENX_GATEWAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"CANTEENX_GATEWAY_TIMEOUT" default:"10s"`
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
