package config

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	DB        DBConfig        `mapstructure:"db"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Session   SessionConfig   `mapstructure:"session"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Retention RetentionConfig `mapstructure:"retention"`
	Bot       BotConfig       `mapstructure:"bot"`
	AI        AIConfig        `mapstructure:"ai"`
	Applicant ApplicantConfig `mapstructure:"applicant"`
}

type subConfig interface {
	setDefaults()
	bindEnvironmentVariables() error
}

var defaultConfigFile = "./configs/config.yaml"

func Get() *Config {
	file := defaultConfigFile
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		file = value
	}

	config, err := Load(file)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

// Load reads the yaml file, applies defaults and environment overrides and validates the result.
func Load(file string) (*Config, error) {
	viper.Reset()
	viper.SetConfigFile(file)
	viper.AutomaticEnv()

	subConfigs := map[string]subConfig{
		"LoggerConfig":    LoggerConfig{},
		"DBConfig":        DBConfig{},
		"MetricsConfig":   MetricsConfig{},
		"SessionConfig":   SessionConfig{},
		"BrowserConfig":   BrowserConfig{},
		"SchedulerConfig": SchedulerConfig{},
		"LimitsConfig":    LimitsConfig{},
		"RetentionConfig": RetentionConfig{},
		"BotConfig":       BotConfig{},
		"AIConfig":        AIConfig{},
		"ApplicantConfig": ApplicantConfig{},
	}

	var errs []error
	for name, sub := range subConfigs {
		sub.setDefaults()
		if err := sub.bindEnvironmentVariables(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (config Config) validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"LoggerConfig", config.Logger.validate()},
		{"DBConfig", config.DB.validate()},
		{"MetricsConfig", config.Metrics.validate()},
		{"SessionConfig", config.Session.validate()},
		{"BrowserConfig", config.Browser.validate()},
		{"SchedulerConfig", config.Scheduler.validate()},
		{"LimitsConfig", config.Limits.validate()},
		{"RetentionConfig", config.Retention.validate()},
		{"BotConfig", config.Bot.validate()},
		{"AIConfig", config.AI.validate()},
		{"ApplicantConfig", config.Applicant.validate()},
	}

	var errs []error
	for _, check := range checks {
		if check.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", check.name, check.err))
		}
	}

	if config.Session.Interactive && config.Bot.Token == "" {
		errs = append(errs, errors.New("interactive session needs bot.token to receive challenge responses"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

// bindEnvs binds every viper key to its environment variable and joins the failures.
func bindEnvs(bindings map[string]string) error {
	var errs []error
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
