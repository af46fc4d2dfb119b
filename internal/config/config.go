// Package config loads process configuration via spf13/viper: environment
// variables and an optional bourse.yaml, read once at startup.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable the cmd/bourse entrypoint needs.
type Config struct {
	MongoURI       string `mapstructure:"mongo_uri"`
	MongoDB        string `mapstructure:"mongo_db"`
	LogLevel       string `mapstructure:"log_level"`
	Prompt         string `mapstructure:"prompt"`
	PersistEnabled bool   `mapstructure:"persist_enabled"`
}

// Load reads configuration from, in increasing priority: defaults, an
// optional ./bourse.yaml, then BOURSE_-prefixed environment variables.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db", "bourse")
	v.SetDefault("log_level", "info")
	v.SetDefault("prompt", "> ")
	v.SetDefault("persist_enabled", false)

	v.SetConfigName("bourse")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("bourse")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
