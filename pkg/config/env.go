package config

// EnvPrefix is handed to envconfig; every tag above is already fully qualified.
const EnvPrefix = "ORDERFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv              = "ORDERFLOW_APP_ENV"
	EnvPort                = "ORDERFLOW_APP_PORT"
	EnvDBDSN               = "ORDERFLOW_DB_DSN"
	EnvDBHost              = "ORDERFLOW_DB_HOST"
	EnvDBUser              = "ORDERFLOW_DB_USER"
	EnvDBName              = "ORDERFLOW_DB_NAME"
	EnvRedisURL            = "ORDERFLOW_REDIS_URL"
	EnvJWTSecret           = "ORDERFLOW_JWT_SECRET"
	EnvJWTIssuer           = "ORDERFLOW_JWT_ISSUER"
	EnvStripeAPIKey        = "ORDERFLOW_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "ORDERFLOW_STRIPE_WEBHOOK_SECRET"
	EnvStripeSessionTTL    = "ORDERFLOW_STRIPE_SESSION_TTL"
	EnvCronPendingTimeout  = "ORDERFLOW_CRON_PENDING_ORDER_TIMEOUT"
	EnvCronInterval        = "ORDERFLOW_CRON_INTERVAL"
	EnvCronLockTTL         = "ORDERFLOW_CRON_LOCK_TTL"
)
