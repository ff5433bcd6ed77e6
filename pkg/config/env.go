package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvMongoURI      = "STOREFRONT_MONGO_URI"
	EnvMongoDatabase = "STOREFRONT_MONGO_DATABASE"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID     = "STOREFRONT_GCP_PROJECT_ID"
	EnvGCSBucket        = "STOREFRONT_GCS_BUCKET_NAME"
	EnvPubSubDomainTop  = "STOREFRONT_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubAnalytics  = "STOREFRONT_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvAPIBaseURL       = "STOREFRONT_API_BASE_URL"
	EnvClientStateFile  = "STOREFRONT_CLIENT_STATE_FILE"
	EnvMagicLinkBaseURL = "STOREFRONT_MAGIC_LINK_BASE_URL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
