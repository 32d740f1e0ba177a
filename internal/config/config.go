package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the character profile database settings. An empty
// URL selects the JSON-file profile store instead of Postgres.
type DatabaseConfig struct {
	URL            string `mapstructure:"url" validate:"omitempty,url"`
	CharactersFile string `mapstructure:"characters_file"`
}

// AuthConfig contains authentication settings. An empty JWTSecret disables
// authentication entirely; when set it must be long enough to resist
// brute-forcing.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	AccessPasswordHash   string `mapstructure:"access_password_hash"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"omitempty,gt=0"`
}

// LLMConfig contains the generative model integration settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	ImageModelName    string `mapstructure:"image_model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// GenerationConfig contains the job admission and generation settings.
type GenerationConfig struct {
	MaxConcurrent   int     `mapstructure:"max_concurrent" validate:"required,gt=0"`
	RetentionLimit  int     `mapstructure:"retention_limit" validate:"required,gt=0"`
	GuidanceScale   float64 `mapstructure:"guidance_scale" validate:"required,gte=1,lte=20"`
	Steps           int     `mapstructure:"steps" validate:"required,gte=10,lte=150"`
	BaseSeed        int64   `mapstructure:"base_seed"`
	ConsistencySeed int64   `mapstructure:"consistency_seed"`
	NegativePrompt  string  `mapstructure:"negative_prompt"`
	OutputDir       string  `mapstructure:"output_dir" validate:"required"`
}
