package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server. Keys map to
// GHLINK_<KEY> environment variables.
type ServerConfig struct {
	HTTPAddr  string `mapstructure:"http_addr" validate:"required"`
	LogLevel  string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogPretty bool   `mapstructure:"log_pretty"`

	// GitHub App
	AppID          int64  `mapstructure:"app_id"           validate:"gt=0"`
	AppSlug        string `mapstructure:"app_slug"         validate:"required"`
	PrivateKey     string `mapstructure:"private_key"      validate:"required_without=PrivateKeyPath"`
	PrivateKeyPath string `mapstructure:"private_key_path" validate:"required_without=PrivateKey"`
	ClientID       string `mapstructure:"client_id"        validate:"required"`
	ClientSecret   string `mapstructure:"client_secret"    validate:"required"`
	GitHubAPIURL   string `mapstructure:"github_api_url"   validate:"omitempty,url"`
	GitHubWebURL   string `mapstructure:"github_web_url"   validate:"omitempty,url"`

	// Handshake
	StateSecret     string        `mapstructure:"state_secret"     validate:"required,min=16"`
	StateTTL        time.Duration `mapstructure:"state_ttl"        validate:"gt=0"`
	StateSingleUse  bool          `mapstructure:"state_single_use"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout" validate:"gt=0"`
	AccountID       string        `mapstructure:"account_id"`

	// Storage
	StorageBackend string `mapstructure:"storage_backend" validate:"oneof=memory redis mongodb"`
	RedisAddr      string `mapstructure:"redis_addr"      validate:"required_if=StorageBackend redis"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"        validate:"gte=0"`
	RedisPrefix    string `mapstructure:"redis_prefix"`
	MongoURI       string `mapstructure:"mongo_uri"       validate:"required_if=StorageBackend mongodb"`
	MongoDBName    string `mapstructure:"mongo_db_name"   validate:"required_if=StorageBackend mongodb"`

	TracingEnabled  bool   `mapstructure:"tracing_enabled"`
	OtelServiceName string `mapstructure:"otel_service_name"`
}

var defaults = map[string]interface{}{
	"http_addr":         ":8080",
	"log_level":         "info",
	"log_pretty":        false,
	"app_id":            0,
	"app_slug":          "",
	"private_key":       "",
	"private_key_path":  "",
	"client_id":         "",
	"client_secret":     "",
	"github_api_url":    "https://api.github.com/",
	"github_web_url":    "https://github.com",
	"state_secret":      "",
	"state_ttl":         5 * time.Minute,
	"state_single_use":  true,
	"upstream_timeout":  10 * time.Second,
	"account_id":        "",
	"storage_backend":   "memory",
	"redis_addr":        "",
	"redis_password":    "",
	"redis_db":          0,
	"redis_prefix":      "ghlink",
	"mongo_uri":         "",
	"mongo_db_name":     "ghlink",
	"tracing_enabled":   false,
	"otel_service_name": "ghlink",
}

// LoadConfig reads configuration from a .env file, the config file,
// environment variables and defaults, in increasing precedence for all but
// the .env file, which never overrides variables already set. An empty path
// searches for ghlink_config.yaml.
func LoadConfig(path string) (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ghlink_config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ghlink/")
		v.AddConfigPath("$HOME/.ghlink")
	}

	v.SetEnvPrefix("GHLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

// Validate checks everything the server needs to start.
func (c *ServerConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// PrivateKeyPEM returns the App private key, inline or read from
// PrivateKeyPath. Inline keys may carry literal "\n" sequences.
func (c *ServerConfig) PrivateKeyPEM() ([]byte, error) {
	if c.PrivateKey != "" {
		return []byte(strings.ReplaceAll(c.PrivateKey, `\n`, "\n")), nil
	}
	if c.PrivateKeyPath == "" {
		return nil, errors.New("neither private_key nor private_key_path is set")
	}

	pem, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	return pem, nil
}
