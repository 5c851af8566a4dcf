// Package config resolves all application configuration in one explicit
// step at process start. Adapters consume the resulting typed value; nothing
// re-reads the environment at call time.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	appErrors "conexiones-backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	LogLevel      string `yaml:"log_level"`
	EnableCORS    bool   `yaml:"enable_cors"`

	// Supabase configuration
	SupabaseURL    string `yaml:"supabase_url"`
	SupabaseKey    string `yaml:"supabase_key"`
	FragmentsTable string `yaml:"fragments_table"`
	// RealtimeEnabled controls the insert-event subscription. Disabled
	// deployments still work; the story only updates on local submissions.
	RealtimeEnabled bool `yaml:"realtime_enabled"`

	// OpenAI configuration. An empty APIKey selects the local template
	// composition strategy for the interactive session.
	OpenAIAPIKey  string  `yaml:"openai_api_key"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	DefaultModel  string  `yaml:"default_model"`
	Temperature   float64 `yaml:"temperature"`

	// Composition tunables
	WindowSize       int `yaml:"window_size"`
	TemplateSegments int `yaml:"template_segments"`

	// OverridesFile is an optional YAML file applied over the defaults and
	// watched for changes in development.
	OverridesFile string `yaml:"-"`
}

// LoadConfig loads configuration from environment variables, with an
// optional YAML overrides file applied first (env always wins).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:    ":8080",
		Environment:      "development",
		LogLevel:         "info",
		EnableCORS:       true,
		FragmentsTable:   "fragments",
		RealtimeEnabled:  true,
		OpenAIBaseURL:    "https://api.openai.com/v1/chat/completions",
		DefaultModel:     "gpt-4.1-mini",
		Temperature:      0.8,
		WindowSize:       20,
		TemplateSegments: 6,
	}

	cfg.OverridesFile = getEnv("CONFIG_FILE", "")
	if cfg.OverridesFile != "" {
		if err := applyFile(cfg.OverridesFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", cfg.OverridesFile, err)
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)

	cfg.SupabaseURL = getEnv("SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseKey = getEnv("SUPABASE_ANON_KEY", cfg.SupabaseKey)
	cfg.FragmentsTable = getEnv("FRAGMENTS_TABLE", cfg.FragmentsTable)
	cfg.RealtimeEnabled = getEnvBool("REALTIME_ENABLED", cfg.RealtimeEnabled)

	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.DefaultModel = getEnv("OPENAI_MODEL", cfg.DefaultModel)
	cfg.Temperature = getEnvFloat("OPENAI_TEMPERATURE", cfg.Temperature)

	cfg.WindowSize = getEnvInt("STORY_WINDOW_SIZE", cfg.WindowSize)
	cfg.TemplateSegments = getEnvInt("STORY_TEMPLATE_SEGMENTS", cfg.TemplateSegments)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return appErrors.NewConfiguration("SUPABASE_URL is required")
	}
	if c.SupabaseKey == "" {
		return appErrors.NewConfiguration("SUPABASE_ANON_KEY is required")
	}
	if c.WindowSize <= 0 {
		return appErrors.NewConfiguration("STORY_WINDOW_SIZE must be positive")
	}
	if c.TemplateSegments <= 0 {
		return appErrors.NewConfiguration("STORY_TEMPLATE_SEGMENTS must be positive")
	}
	return nil
}

// LLMConfigured reports whether the LLM composition strategy can be used.
func (c *Config) LLMConfigured() bool {
	return c.OpenAIAPIKey != ""
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func applyFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
