package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type SessionConfig struct {
	Email            string        `mapstructure:"email"`
	Password         string        `mapstructure:"password"`
	BaseURL          string        `mapstructure:"base_url"`
	CookieJarPath    string        `mapstructure:"cookie_jar_path"`
	FreshStart       bool          `mapstructure:"fresh_start"`
	Interactive      bool          `mapstructure:"interactive"`
	MaxLoginAttempts int           `mapstructure:"max_login_attempts"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
	BackoffMax       time.Duration `mapstructure:"backoff_max"`
	ActionsPerMinute float64       `mapstructure:"actions_per_minute"`
}

func (config SessionConfig) validate() error {
	var missingFields []string
	if config.Email == "" {
		missingFields = append(missingFields, "email")
	}
	if config.Password == "" {
		missingFields = append(missingFields, "password")
	}
	if config.BaseURL == "" {
		missingFields = append(missingFields, "base_url")
	}
	if config.CookieJarPath == "" {
		missingFields = append(missingFields, "cookie_jar_path")
	}

	var errs []error
	if len(missingFields) > 0 {
		errs = append(errs, fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", ")))
	}
	if config.MaxLoginAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_login_attempts must be positive"))
	}
	if config.BackoffBase <= 0 || config.BackoffMax < config.BackoffBase {
		errs = append(errs, fmt.Errorf("backoff_max must be at least backoff_base"))
	}
	if config.ActionsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("actions_per_minute must be positive"))
	}

	return errors.Join(errs...)
}

func (config SessionConfig) setDefaults() {
	viper.SetDefault("session.cookie_jar_path", "./data/cookies.json")
	viper.SetDefault("session.max_login_attempts", 3)
	viper.SetDefault("session.backoff_base", 2*time.Second)
	viper.SetDefault("session.backoff_max", time.Minute)
	viper.SetDefault("session.actions_per_minute", 30)
}

func (config SessionConfig) bindEnvironmentVariables() error {
	return bindEnvs(map[string]string{
		"session.email":       "PLATFORM_EMAIL",
		"session.password":    "PLATFORM_PASSWORD",
		"session.base_url":    "PLATFORM_BASE_URL",
		"session.fresh_start": "FRESH_START",
		"session.interactive": "INTERACTIVE",
	})
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	ExecPath       string        `mapstructure:"exec_path"`
	UserAgent      string        `mapstructure:"user_agent"`
	UserDataDir    string        `mapstructure:"user_data_dir"`
	WindowWidth    int           `mapstructure:"window_width"`
	WindowHeight   int           `mapstructure:"window_height"`
	ElementTimeout time.Duration `mapstructure:"element_timeout"`
}

func (config BrowserConfig) validate() error {
	if config.WindowWidth <= 0 || config.WindowHeight <= 0 {
		return fmt.Errorf("window size must be positive")
	}
	if config.ElementTimeout <= 0 {
		return fmt.Errorf("element_timeout must be positive")
	}
	return nil
}

func (config BrowserConfig) setDefaults() {
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.window_width", 1366)
	viper.SetDefault("browser.window_height", 900)
	viper.SetDefault("browser.element_timeout", 15*time.Second)
}

func (config BrowserConfig) bindEnvironmentVariables() error {
	return bindEnvs(map[string]string{
		"browser.headless":  "HEADLESS",
		"browser.exec_path": "CHROME_PATH",
	})
}
