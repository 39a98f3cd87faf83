package config

const (
	EnvPrefix = "PDV"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:pdv.db?_foreign_keys=on"
)

const (
	EnvAppEnv          = "PDV_APP_ENV"
	EnvPort            = "PDV_APP_PORT"
	EnvLegacyPort      = "PORT"
	EnvDBDSN           = "PDV_DB_DSN"
	EnvDatabaseURL     = "DATABASE_URL"
	EnvDBDriver        = "PDV_DB_DRIVER"
	EnvDBHost          = "PDV_DB_HOST"
	EnvDBUser          = "PDV_DB_USER"
	EnvDBName          = "PDV_DB_NAME"
	EnvRedisURL        = "PDV_REDIS_URL"
	EnvJWTSecret       = "PDV_JWT_SECRET"
	EnvLegacyJWTSecret = "JWT_SECRET"
	EnvJWTExpMins      = "PDV_JWT_EXPIRATION_MINUTES"
	EnvAESKey          = "PDV_AES_KEY"
	EnvAESIV           = "PDV_AES_IV"
	EnvUseSQLite       = "PDV_USE_SQLITE"
	EnvFrontendHost    = "FRONTEND_HOST"
	EnvFrontendPort    = "FRONTEND_PORT"
	EnvSalesTopic      = "PDV_PUBSUB_SALES_TOPIC"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
