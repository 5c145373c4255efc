package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type DBConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
}

func (config DBConfig) validate() error {
	if config.ConnectionString == "" {
		return fmt.Errorf("missing variable: db connection string")
	}
	return nil
}

func (config DBConfig) setDefaults() {
	viper.SetDefault("db.connection_string", "./data/autopilot.db")
}

func (config DBConfig) bindEnvironmentVariables() error {
	return viper.BindEnv("db.connection_string", "DB_CONNECTION_STRING")
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

func (config MetricsConfig) validate() error {
	if config.Enabled && (config.Port <= 0 || config.Port > 65535) {
		return fmt.Errorf("invalid metrics port %d", config.Port)
	}
	return nil
}

func (config MetricsConfig) setDefaults() {
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
}

func (config MetricsConfig) bindEnvironmentVariables() error {
	return bindEnvs(map[string]string{
		"metrics.enabled": "METRICS_ENABLED",
		"metrics.port":    "METRICS_PORT",
	})
}
