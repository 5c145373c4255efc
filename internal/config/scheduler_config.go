package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type SchedulerConfig struct {
	DiscoveryInterval   time.Duration `mapstructure:"discovery_interval"`
	StatusCheckInterval time.Duration `mapstructure:"status_check_interval"`
	ResearchInterval    time.Duration `mapstructure:"research_interval"`
	AutoApplyInterval   time.Duration `mapstructure:"auto_apply_interval"`
	AutoApplyEnabled    bool          `mapstructure:"auto_apply_enabled"`
	MaintenanceCron     string        `mapstructure:"maintenance_cron"`
	TaskTimeout         time.Duration `mapstructure:"task_timeout"`
	DrainTimeout        time.Duration `mapstructure:"drain_timeout"`
	BusinessHoursOnly   bool          `mapstructure:"business_hours_only"`
	BusinessHoursStart  int           `mapstructure:"business_hours_start"`
	BusinessHoursEnd    int           `mapstructure:"business_hours_end"`
	Timezone            string        `mapstructure:"timezone"`
}

func (config SchedulerConfig) validate() error {
	var errs []error

	intervals := map[string]time.Duration{
		"discovery_interval":    config.DiscoveryInterval,
		"status_check_interval": config.StatusCheckInterval,
		"research_interval":     config.ResearchInterval,
		"auto_apply_interval":   config.AutoApplyInterval,
	}
	for name, interval := range intervals {
		if interval < time.Minute {
			errs = append(errs, fmt.Errorf("%s must be at least one minute", name))
		}
	}
	if config.MaintenanceCron == "" {
		errs = append(errs, fmt.Errorf("missing variable: maintenance_cron"))
	}
	if config.TaskTimeout <= 0 {
		errs = append(errs, fmt.Errorf("task_timeout must be positive"))
	}
	if config.BusinessHoursStart < 0 || config.BusinessHoursEnd > 24 ||
		config.BusinessHoursStart >= config.BusinessHoursEnd {
		errs = append(errs, fmt.Errorf("invalid business hours [%d, %d)",
			config.BusinessHoursStart, config.BusinessHoursEnd))
	}
	if _, err := time.LoadLocation(config.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone: %w", err))
	}

	return errors.Join(errs...)
}

func (config SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (config SchedulerConfig) setDefaults() {
	viper.SetDefault("scheduler.discovery_interval", 2*time.Hour)
	viper.SetDefault("scheduler.status_check_interval", 6*time.Hour)
	viper.SetDefault("scheduler.research_interval", 12*time.Hour)
	viper.SetDefault("scheduler.auto_apply_interval", time.Hour)
	viper.SetDefault("scheduler.auto_apply_enabled", false)
	viper.SetDefault("scheduler.maintenance_cron", "0 3 * * *")
	viper.SetDefault("scheduler.task_timeout", 45*time.Minute)
	viper.SetDefault("scheduler.drain_timeout", 30*time.Second)
	viper.SetDefault("scheduler.business_hours_only", true)
	viper.SetDefault("scheduler.business_hours_start", 9)
	viper.SetDefault("scheduler.business_hours_end", 17)
	viper.SetDefault("scheduler.timezone", "Local")
}

func (config SchedulerConfig) bindEnvironmentVariables() error {
	return bindEnvs(map[string]string{
		"scheduler.discovery_interval":    "DISCOVERY_INTERVAL",
		"scheduler.status_check_interval": "STATUS_CHECK_INTERVAL",
		"scheduler.research_interval":     "RESEARCH_INTERVAL",
		"scheduler.auto_apply_interval":   "AUTO_APPLY_INTERVAL",
		"scheduler.auto_apply_enabled":    "AUTO_APPLY_ENABLED",
		"scheduler.business_hours_only":   "BUSINESS_HOURS_ONLY",
		"scheduler.timezone":              "TZ_NAME",
	})
}
