package config

import (
	"fmt"
	"os"
)

// ApplicantConfig is the data auto-apply fills into application forms.
type ApplicantConfig struct {
	Phone           string `mapstructure:"phone"`
	ResumePath      string `mapstructure:"resume_path"`
	CoverLetterPath string `mapstructure:"cover_letter_path"`
}

func (config ApplicantConfig) validate() error {
	for _, path := range []string{config.ResumePath, config.CoverLetterPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("applicant file: %w", err)
		}
	}
	return nil
}

// CoverLetter returns the cover letter text, or an empty string when none is configured.
func (config ApplicantConfig) CoverLetter() (string, error) {
	if config.CoverLetterPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(config.CoverLetterPath)
	if err != nil {
		return "", fmt.Errorf("read cover letter: %w", err)
	}
	return string(data), nil
}

func (config ApplicantConfig) setDefaults() {}

func (config ApplicantConfig) bindEnvironmentVariables() error {
	return bindEnvs(map[string]string{
		"applicant.phone":             "APPLICANT_PHONE",
		"applicant.resume_path":       "RESUME_PATH",
		"applicant.cover_letter_path": "COVER_LETTER_PATH",
	})
}
