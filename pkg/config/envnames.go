package config

const EnvPrefix = "TTK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "TTK_APP_ENV"
	EnvPort     = "TTK_APP_PORT"
	EnvLogLevel = "TTK_LOG_LEVEL"

	EnvDBDSN  = "TTK_DB_DSN"
	EnvDBHost = "TTK_DB_HOST"
	EnvDBUser = "TTK_DB_USER"
	EnvDBName = "TTK_DB_NAME"

	EnvRedisURL = "TTK_REDIS_URL"

	EnvJWTSecret  = "TTK_JWT_SECRET"
	EnvJWTIssuer  = "TTK_JWT_ISSUER"
	EnvJWTExpMins = "TTK_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "TTK_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic        = "TTK_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub          = "TTK_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubCatalogTopic       = "TTK_PUBSUB_CATALOG_TOPIC"
	EnvPubSubCatalogSub         = "TTK_PUBSUB_CATALOG_SUBSCRIPTION"
	EnvPubSubNotificationTopic  = "TTK_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub    = "TTK_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
