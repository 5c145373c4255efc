package scheduler

import (
	"time"

	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// Window limits when scheduled firings may start. Manual triggers ignore it.
type Window interface {
	Allows(t time.Time) bool
}

// Schedule fires either every Every or on the Cron expression, never both.
type Schedule struct {
	Every   time.Duration
	Cron    string
	Window  Window
	Enabled bool
	// Timeout overrides the coordinator task timeout when set.
	Timeout time.Duration
}

func (s Schedule) Spec() string {
	if s.Cron != "" {
		return s.Cron
	}
	return "@every " + s.Every.String()
}

func (s Schedule) validate() error {
	if (s.Every > 0) == (s.Cron != "") {
		return errors.Wrap(ErrInvalidSchedule, "exactly one of interval and cron expression is required")
	}
	if s.Every < 0 || (s.Every > 0 && s.Every < time.Second) {
		return errors.Wrapf(ErrInvalidSchedule, "interval %v is shorter than a second", s.Every)
	}
	if _, err := cron.ParseStandard(s.Spec()); err != nil {
		return errors.Wrapf(ErrInvalidSchedule, "%q: %v", s.Spec(), err)
	}
	return nil
}

// BusinessHours allows weekdays from Start (inclusive) to End (exclusive) hour in Location.
type BusinessHours struct {
	Start    int
	End      int
	Location *time.Location
}

func NewBusinessHours(cfg config.SchedulerConfig) BusinessHours {
	return BusinessHours{
		Start:    cfg.BusinessHoursStart,
		End:      cfg.BusinessHoursEnd,
		Location: cfg.Location(),
	}
}

func (b BusinessHours) Allows(t time.Time) bool {
	location := b.Location
	if location == nil {
		location = time.Local
	}
	local := t.In(location)

	if weekday := local.Weekday(); weekday == time.Saturday || weekday == time.Sunday {
		return false
	}
	return local.Hour() >= b.Start && local.Hour() < b.End
}
