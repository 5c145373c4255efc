package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// BotConfig configures the operator chat. An empty token disables the bot.
type BotConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

func (config BotConfig) Enabled() bool {
	return config.Token != ""
}

func (config BotConfig) validate() error {
	if config.Token != "" && config.ChatID == 0 {
		return fmt.Errorf("missing variable: chat_id")
	}
	return nil
}

func (config BotConfig) setDefaults() {}

func (config BotConfig) bindEnvironmentVariables() error {
	return bindEnvs(map[string]string{
		"bot.token":   "TG_TOKEN",
		"bot.chat_id": "TG_CHAT_ID",
	})
}

// AIConfig configures Gemini match scoring. Without a key jobs are scored by keywords only.
type AIConfig struct {
	Key                  string  `mapstructure:"key"`
	Model                string  `mapstructure:"model"`
	MaxRequestsPerMinute float32 `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerDay    float32 `mapstructure:"max_requests_per_day"`
}

func (config AIConfig) Enabled() bool {
	return config.Key != ""
}

func (config AIConfig) validate() error {
	if config.Key == "" {
		return nil
	}
	if config.Model == "" {
		return fmt.Errorf("missing variable: model")
	}
	if config.MaxRequestsPerMinute <= 0 || config.MaxRequestsPerDay <= 0 {
		return fmt.Errorf("request limits must be positive")
	}
	return nil
}

func (config AIConfig) setDefaults() {
	viper.SetDefault("ai.model", "gemini-1.5-flash")
	viper.SetDefault("ai.max_requests_per_minute", 10)
	viper.SetDefault("ai.max_requests_per_day", 1000)
}

func (config AIConfig) bindEnvironmentVariables() error {
	return bindEnvs(map[string]string{
		"ai.key":                     "AI_KEY",
		"ai.model":                   "AI_MODEL",
		"ai.max_requests_per_minute": "AI_MAX_REQUESTS_PER_MINUTE",
		"ai.max_requests_per_day":    "AI_MAX_REQUESTS_PER_DAY",
	})
}
