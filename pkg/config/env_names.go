package config

// EnvPrefix scopes every environment variable this service reads.
const EnvPrefix = "CANTEENX"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "CANTEENX_APP_ENV"
	EnvPort         = "CANTEENX_APP_PORT"
	EnvDBDSN        = "CANTEENX_DB_DSN"
	EnvDBHost       = "CANTEENX_DB_HOST"
	EnvDBUser       = "CANTEENX_DB_USER"
	EnvDBName       = "CANTEENX_DB_NAME"
	EnvRedisURL     = "CANTEENX_REDIS_URL"
	EnvGCPProjectID = "CANTEENX_GCP_PROJECT_ID"

	EnvPubSubDomainTopic = "CANTEENX_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub   = "CANTEENX_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
