package config

// EnvPrefix is empty because every field names its full env var explicitly.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "KITLOOP_DB_DSN"
	EnvDBHost = "KITLOOP_DB_HOST"
	EnvDBUser = "KITLOOP_DB_USER"
	EnvDBName = "KITLOOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
