package config

import "github.com/caarlos0/env/v10"

// Config centralizes the engine's configuration, loaded from the
// environment via struct tags.
type Config struct {
	MemoryBasePath string `env:"MEMORY_BASE_PATH" envDefault:"./memory"`

	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gpt-5.1"`

	EmbeddingBaseURL    string `env:"EMBEDDING_BASE_URL" envDefault:"https://api.openai.com/v1"`
	EmbeddingAPIKey     string `env:"EMBEDDING_API_KEY"`
	EmbeddingModel      string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int    `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	HTTPPort   string `env:"HTTP_PORT" envDefault:"8080"`
	AuthAPIKey string `env:"AUTH_API_KEY"`
	JWTSecret  string `env:"JWT_SECRET"`
	DevLogging bool   `env:"DEV_LOGGING" envDefault:"false"`

	ProfileThreshold       int `env:"PROFILE_THRESHOLD" envDefault:"5"`
	ConsolidationFrequency int `env:"CONSOLIDATION_FREQUENCY" envDefault:"10"`
	WorkingMemoryCap       int `env:"WORKING_MEMORY_CAP" envDefault:"10"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
