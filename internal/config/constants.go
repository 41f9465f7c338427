package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "production"

	defaultMaxUploadMB = 10

	defaultAIProvider    = "openai"
	defaultAIModel       = "gpt-3.5-turbo"
	defaultAITemperature = 0.7
	defaultAIConcurrency = 4

	defaultCredentialDriver = "file"
	defaultCredentialKey    = "openai_api_key"
	defaultCredentialFile   = "credentials.json"

	defaultSessionTTL  = 2 * time.Hour
	defaultExportSuffix = "_with_responses"

	// EnvAPIKey seeds the credential slot when it is empty.
	EnvAPIKey = "FWR_OPENAI_API_KEY"
	// EnvRedisURL overrides credential.redis_url.
	EnvRedisURL = "FWR_REDIS_URL"
)
