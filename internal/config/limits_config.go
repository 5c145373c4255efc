package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type LimitsConfig struct {
	MaxApplicationsPerDay int           `mapstructure:"max_applications_per_day"`
	MinMatchScore         int           `mapstructure:"min_match_score"`
	MaxJobsPerRun         int           `mapstructure:"max_jobs_per_run"`
	MaxEmptyBatches       int           `mapstructure:"max_empty_batches"`
	MaxBatches            int           `mapstructure:"max_batches"`
	StatusCheckBatch      int           `mapstructure:"status_check_batch"`
	StatusCheckEvery      time.Duration `mapstructure:"status_check_every"`
	ResearchBatch         int           `mapstructure:"research_batch"`
	ResearchRefreshAfter  time.Duration `mapstructure:"research_refresh_after"`
	StepRetries           int           `mapstructure:"step_retries"`
	PaceMin               time.Duration `mapstructure:"pace_min"`
	PaceMax               time.Duration `mapstructure:"pace_max"`
}

func (config LimitsConfig) validate() error {
	var errs []error
	if config.MaxApplicationsPerDay < 0 {
		errs = append(errs, fmt.Errorf("max_applications_per_day must not be negative"))
	}
	if config.MinMatchScore < 0 || config.MinMatchScore > 100 {
		errs = append(errs, fmt.Errorf("min_match_score must be within [0, 100]"))
	}
	positive := map[string]int{
		"max_jobs_per_run":   config.MaxJobsPerRun,
		"max_empty_batches":  config.MaxEmptyBatches,
		"max_batches":        config.MaxBatches,
		"status_check_batch": config.StatusCheckBatch,
		"research_batch":     config.ResearchBatch,
		"step_retries":       config.StepRetries,
	}
	for name, value := range positive {
		if value < 1 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if config.PaceMin < 0 || config.PaceMax < config.PaceMin {
		errs = append(errs, fmt.Errorf("pace_max must be at least pace_min"))
	}
	return errors.Join(errs...)
}

func (config LimitsConfig) setDefaults() {
	viper.SetDefault("limits.max_applications_per_day", 10)
	viper.SetDefault("limits.min_match_score", 70)
	viper.SetDefault("limits.max_jobs_per_run", 100)
	viper.SetDefault("limits.max_empty_batches", 3)
	viper.SetDefault("limits.max_batches", 20)
	viper.SetDefault("limits.status_check_batch", 50)
	viper.SetDefault("limits.status_check_every", 24*time.Hour)
	viper.SetDefault("limits.research_batch", 20)
	viper.SetDefault("limits.research_refresh_after", 30*24*time.Hour)
	viper.SetDefault("limits.step_retries", 2)
	viper.SetDefault("limits.pace_min", 2*time.Second)
	viper.SetDefault("limits.pace_max", 6*time.Second)
}

func (config LimitsConfig) bindEnvironmentVariables() error {
	return bindEnvs(map[string]string{
		"limits.max_applications_per_day": "MAX_APPLICATIONS_PER_DAY",
		"limits.min_match_score":          "MIN_MATCH_SCORE",
		"limits.max_jobs_per_run":         "MAX_JOBS_PER_RUN",
	})
}

type RetentionConfig struct {
	JobRetention  time.Duration `mapstructure:"job_retention"`
	LogRetention  time.Duration `mapstructure:"log_retention"`
	HistoryKeep   int           `mapstructure:"history_keep"`
	HistoryMaxAge time.Duration `mapstructure:"history_max_age"`
}

func (config RetentionConfig) validate() error {
	var errs []error
	if config.JobRetention <= 0 || config.LogRetention <= 0 || config.HistoryMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("retention windows must be positive"))
	}
	if config.LogRetention < config.JobRetention {
		errs = append(errs, fmt.Errorf("log_retention must not be shorter than job_retention"))
	}
	if config.HistoryKeep < 1 {
		errs = append(errs, fmt.Errorf("history_keep must be positive"))
	}
	return errors.Join(errs...)
}

func (config RetentionConfig) setDefaults() {
	viper.SetDefault("retention.job_retention", 30*24*time.Hour)
	viper.SetDefault("retention.log_retention", 90*24*time.Hour)
	viper.SetDefault("retention.history_keep", 10)
	viper.SetDefault("retention.history_max_age", 60*24*time.Hour)
}

func (config RetentionConfig) bindEnvironmentVariables() error {
	return nil
}
