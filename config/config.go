package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	SessionDriverMemory = "memory"
	SessionDriverBolt   = "bolt"

	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

type Config struct {
	Port            string             `mapstructure:"port"`
	Provider        string             `mapstructure:"provider"`
	AIEndpoint      string             `mapstructure:"ai_endpoint"`
	Model           string             `mapstructure:"model"`
	GeminiAPIKey    string             `mapstructure:"GEMINI_API_KEY"`
	OpenAIAPIKey    string             `mapstructure:"OPENAI_API_KEY"`
	Stream          bool               `mapstructure:"stream"`
	UploadDir       string             `mapstructure:"upload_dir"`
	MaxUploadSizeMB int64              `mapstructure:"max_upload_size_mb"`
	UploadTimeout   time.Duration      `mapstructure:"upload_timeout"`
	LogLevel        string             `mapstructure:"log_level"`
	SessionStore    SessionStoreConfig `mapstructure:"session_store"`
}

type SessionStoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// MaxUploadSize returns the upload limit in bytes.
func (c *Config) MaxUploadSize() int64 {
	return c.MaxUploadSizeMB << 20
}

// GeminiAPIKeys splits GEMINI_API_KEY on commas so several keys can be rotated.
func (c *Config) GeminiAPIKeys() []string {
	var keys []string
	for _, k := range strings.Split(c.GeminiAPIKey, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// DefaultModel is the model used for provider when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	default:
		return ""
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderGemini:
		if len(c.GeminiAPIKeys()) == 0 {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case ProviderOpenAI:
		if c.AIEndpoint == "" {
			errs = append(errs, errors.New("ai_endpoint is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	switch c.SessionStore.Driver {
	case SessionDriverMemory:
	case SessionDriverBolt:
		if c.SessionStore.Path == "" {
			errs = append(errs, errors.New("session_store.path is required for the bolt driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store driver %q", c.SessionStore.Driver))
	}
	if c.MaxUploadSizeMB <= 0 {
		errs = append(errs, errors.New("max_upload_size_mb must be positive"))
	}
	if c.UploadTimeout <= 0 {
		errs = append(errs, errors.New("upload_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model", "")
	v.SetDefault("stream", true)
	v.SetDefault("upload_dir", "")
	v.SetDefault("max_upload_size_mb", 100)
	v.SetDefault("upload_timeout", 180*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("session_store.driver", SessionDriverMemory)
	v.SetDefault("session_store.path", "data/sessions.db")
}

// LoadConfig reads configPath (if not empty) and overlays environment variables.
// A missing file is not an error when configPath is empty.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Bind environment variables
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("OPENAI_API_KEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if config.Model == "" {
		config.Model = DefaultModel(config.Provider)
	}

	return &config, nil
}
