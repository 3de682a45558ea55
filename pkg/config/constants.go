package config

// EnvPrefix is the shared prefix for all GemCore environment variables.
const EnvPrefix = "GEMCORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "GEMCORE_DB_DSN"
	EnvDBHost = "GEMCORE_DB_HOST"
	EnvDBUser = "GEMCORE_DB_USER"
	EnvDBName = "GEMCORE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
