package config

const (
	EnvPrefix = "VERITRACE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "VERITRACE_APP_ENV"
	EnvPort   = "VERITRACE_APP_PORT"

	EnvDBDSN      = "VERITRACE_DB_DSN"
	EnvDBHost     = "VERITRACE_DB_HOST"
	EnvDBUser     = "VERITRACE_DB_USER"
	EnvDBName     = "VERITRACE_DB_NAME"
	EnvRedisURL   = "VERITRACE_REDIS_URL"
	EnvGCPProject = "VERITRACE_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
