package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

// Load reads ORDERFLOW_* variables and reports every cross-field problem at
// once rather than the first.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	err := multierr.Combine(
		cfg.DB.ensureDSN(),
		cfg.Stripe.validate(),
		cfg.Cron.validate(),
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERFLOW_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"ORDERFLOW_APP_PUBLIC_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"ORDERFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERFLOW_LOG_WARN_STACK" default:"false"`
	// LogFormat is json or console.
	LogFormat string `envconfig:"ORDERFLOW_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERFLOW_DB_DSN"`
	Driver string `envconfig:"ORDERFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERFLOW_DB_USER"`
	LegacyPassword string `envconfig:"ORDERFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORDERFLOW_AUTO_MIGRATE" default:"false"`
	// DisablePublisher lets local runs skip Pub/Sub entirely.
	DisablePublisher bool `envconfig:"ORDERFLOW_DISABLE_PUBLISHER" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"ORDERFLOW_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
	RequestIdempotencyTTL time.Duration `envconfig:"ORDERFLOW_EVENTING_REQUEST_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORDERFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ORDERFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORDERFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"ORDERFLOW_PUBSUB_ORDERS_TOPIC" default:"orderflow-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ORDERFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ORDERFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ORDERFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the millisecond setting into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"ORDERFLOW_CRON_INTERVAL" default:"5m"`
	LockTTL             time.Duration `envconfig:"ORDERFLOW_CRON_LOCK_TTL" default:"4m"`
	PendingOrderTimeout time.Duration `envconfig:"ORDERFLOW_CRON_PENDING_ORDER_TIMEOUT" default:"2h"`
	OutboxRetention     time.Duration `envconfig:"ORDERFLOW_CRON_OUTBOX_RETENTION" default:"720h"`
}

type StripeConfig struct {
	APIKey        string        `envconfig:"ORDERFLOW_STRIPE_API_KEY" required:"true"`
	WebhookSecret string        `envconfig:"ORDERFLOW_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env           string        `envconfig:"ORDERFLOW_STRIPE_ENV" default:"test"`
	Currency      string        `envconfig:"ORDERFLOW_STRIPE_CURRENCY" default:"usd"`
	SessionTTL    time.Duration `envconfig:"ORDERFLOW_STRIPE_SESSION_TTL" default:"30m"`
	// ShippingCountries are ISO 3166-1 alpha-2 codes offered at checkout.
	ShippingCountries []string `envconfig:"ORDERFLOW_STRIPE_SHIPPING_COUNTRIES" default:"US,CA"`
	// {ORDER_ID} and {CHECKOUT_SESSION_ID} are substituted at session creation.
	SuccessURL string `envconfig:"ORDERFLOW_STRIPE_SUCCESS_URL" default:"/checkout/success?session_id={CHECKOUT_SESSION_ID}&order_id={ORDER_ID}"`
	CancelURL  string `envconfig:"ORDERFLOW_STRIPE_CANCEL_URL" default:"/checkout/cancel?order_id={ORDER_ID}"`

	BreakerMaxFailures uint32        `envconfig:"ORDERFLOW_STRIPE_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"ORDERFLOW_STRIPE_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

func (s StripeConfig) validate() error {
	var err error
	if strings.TrimSpace(s.APIKey) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required", EnvStripeAPIKey))
	}
	if strings.TrimSpace(s.WebhookSecret) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required", EnvStripeWebhookSecret))
	}
	// stripe rejects expires_at outside this window
	if s.SessionTTL < 30*time.Minute || s.SessionTTL > 24*time.Hour {
		err = multierr.Append(err, fmt.Errorf("%s must be between 30m and 24h", EnvStripeSessionTTL))
	}
	return err
}

func (c CronConfig) validate() error {
	if c.LockTTL >= c.Interval {
		return fmt.Errorf("%s must be shorter than %s", EnvCronLockTTL, EnvCronInterval)
	}
	if c.PendingOrderTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvCronPendingTimeout)
	}
	return nil
}

// ensureDSN assembles a postgres URL from the discrete DB variables when no
// DSN is given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for name, value := range map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		u.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
