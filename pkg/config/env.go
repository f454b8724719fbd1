package config

const EnvPrefix = "FOODRESCUE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverRedis    = "redis"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

const (
	EnvAppEnv          = "FOODRESCUE_APP_ENV"
	EnvLogLevel        = "FOODRESCUE_LOG_LEVEL"
	EnvAPIBaseURL      = "FOODRESCUE_API_BASE_URL"
	EnvAPIToken        = "FOODRESCUE_API_TOKEN"
	EnvAPITimeout      = "FOODRESCUE_API_TIMEOUT"
	EnvPickupOffset    = "FOODRESCUE_CHECKOUT_PICKUP_OFFSET"
	EnvAutoPay         = "FOODRESCUE_CHECKOUT_AUTO_PAY"
	EnvDefaultProvider = "FOODRESCUE_CHECKOUT_PROVIDER"
	EnvStorageDriver   = "FOODRESCUE_STORAGE_DRIVER"
	EnvStorageDSN      = "FOODRESCUE_STORAGE_DSN"
	EnvStorageNS       = "FOODRESCUE_STORAGE_NAMESPACE"
	EnvRedisURL        = "FOODRESCUE_REDIS_URL"
	EnvCallbackPort    = "FOODRESCUE_CALLBACK_PORT"
	EnvInstanceID      = "FOODRESCUE_INSTANCE_ID"
	EnvTraceExporter   = "FOODRESCUE_TRACE_EXPORTER"
)
