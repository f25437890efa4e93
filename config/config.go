package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	// MongoTransactions requires a replica set; disable for standalone
	// development instances.
	MongoTransactions bool   `mapstructure:"MONGO_TRANSACTIONS"`
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int    `mapstructure:"REDIS_DB"`
	AvatarQueueKey    string `mapstructure:"AVATAR_QUEUE_KEY"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogPretty         bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName   string `mapstructure:"OTEL_SERVICE_NAME"`

	// Reconciliation policy flags.
	EmailMatchEnabled     bool `mapstructure:"EMAIL_MATCH_ENABLED"`
	RequireVerifiedEmail  bool `mapstructure:"REQUIRE_VERIFIED_EMAIL"`
	AvatarOverrideAllowed bool `mapstructure:"AVATAR_OVERRIDE_ALLOWED"`

	BcryptCost int `mapstructure:"BCRYPT_COST"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/idlink/")
	v.AddConfigPath("$HOME/.idlink")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/idlink_dev")
	v.SetDefault("MONGO_DB_NAME", "idlink_dev")
	v.SetDefault("MONGO_TRANSACTIONS", true)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AVATAR_QUEUE_KEY", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "idlink-server")
	v.SetDefault("EMAIL_MATCH_ENABLED", true)
	v.SetDefault("REQUIRE_VERIFIED_EMAIL", true)
	v.SetDefault("AVATAR_OVERRIDE_ALLOWED", false)
	v.SetDefault("BCRYPT_COST", 0)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on defaults and env vars.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
