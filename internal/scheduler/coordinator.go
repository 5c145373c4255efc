package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/metrics"
	"github.com/maxaizer/job-autopilot/internal/tasks"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type runLogRepository interface {
	Add(ctx context.Context, log entities.ScrapingLog) error
	LatestByKind(ctx context.Context, kind entities.TaskKind) (*entities.ScrapingLog, error)
}

type settingsRepository interface {
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

type entry struct {
	task     tasks.Task
	schedule Schedule
	cronID   cron.EntryID
	paused   bool
	running  atomic.Bool
	lastRun  *entities.ScrapingLog
}

// Coordinator owns the task timers. At most one run of a task kind is active at a time;
// runs of different kinds are serialised by the session lease.
type Coordinator struct {
	runLogs  runLogRepository
	settings settingsRepository
	bus      EventBus.Bus
	location *time.Location
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[entities.TaskKind]*entry
	order   []entities.TaskKind
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	runs    *sync.WaitGroup
}

func NewCoordinator(runLogs runLogRepository, settings settingsRepository, bus EventBus.Bus,
	cfg config.SchedulerConfig) *Coordinator {

	return &Coordinator{
		runLogs:  runLogs,
		settings: settings,
		bus:      bus,
		location: cfg.Location(),
		timeout:  cfg.TaskTimeout,
		now:      time.Now,
		entries:  make(map[entities.TaskKind]*entry),
	}
}

func pausedKey(kind entities.TaskKind) string {
	return "scheduler.paused." + string(kind)
}

func (c *Coordinator) Register(task tasks.Task, schedule Schedule) error {
	if err := schedule.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kind := task.Kind()
	if _, exists := c.entries[kind]; exists {
		return errors.Wrap(ErrDuplicateTask, string(kind))
	}

	e := &entry{task: task, schedule: schedule}
	if c.started && schedule.Enabled {
		if err := c.addTimer(e); err != nil {
			return err
		}
	}
	c.entries[kind] = e
	c.order = append(c.order, kind)

	log.Infof("registered %v (%v, enabled: %v)", kind, schedule.Spec(), schedule.Enabled)
	return nil
}

// Start restores persisted pause flags and starts the timers of enabled, unpaused tasks.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		log.Warn("scheduler is already running")
		return nil
	}

	c.restore(ctx)

	c.cron = cron.New(cron.WithLocation(c.location))
	for _, kind := range c.order {
		e := c.entries[kind]
		if !e.schedule.Enabled || e.paused {
			continue
		}
		if err := c.addTimer(e); err != nil {
			c.cron = nil
			return err
		}
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.runs = &sync.WaitGroup{}
	c.cron.Start()
	c.started = true

	log.Infof("scheduler started with %v tasks", len(c.order))
	return nil
}

func (c *Coordinator) restore(ctx context.Context) {
	for _, kind := range c.order {
		e := c.entries[kind]

		paused, err := c.settings.GetBool(ctx, pausedKey(kind))
		if err != nil {
			log.Warnf("failed to restore pause state of %v: %v", kind, err)
		} else {
			e.paused = paused
		}

		if e.lastRun == nil {
			last, err := c.runLogs.LatestByKind(ctx, kind)
			if err != nil {
				log.Warnf("failed to load last run of %v: %v", kind, err)
			}
			e.lastRun = last
		}
	}
}

func (c *Coordinator) addTimer(e *entry) error {
	kind := e.task.Kind()
	id, err := c.cron.AddFunc(e.schedule.Spec(), func() {
		_ = c.fire(kind, entities.TriggerScheduled)
	})
	if err != nil {
		return errors.Wrapf(ErrInvalidSchedule, "%v: %v", kind, err)
	}
	e.cronID = id
	return nil
}

func (c *Coordinator) removeTimer(e *entry) {
	if e.cronID != 0 && c.cron != nil {
		c.cron.Remove(e.cronID)
	}
	e.cronID = 0
}

// Stop stops every timer and waits for in-flight runs until ctx is done. Runs still going
// at that point are abandoned: their context is cancelled and Stop returns ctx's error.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	cronDone := c.cron.Stop()
	for _, e := range c.entries {
		e.cronID = 0
	}
	c.cron = nil
	cancel, runs := c.cancel, c.runs
	c.mu.Unlock()

	<-cronDone.Done()

	drained := make(chan struct{})
	go func() {
		runs.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		cancel()
		log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		cancel()
		log.Warn("scheduler stopped, abandoning in-flight runs")
		return ctx.Err()
	}
}

// Trigger starts a run of kind now, outside its schedule and window. It does not wait for the run.
func (c *Coordinator) Trigger(kind entities.TaskKind) error {
	return c.fire(kind, entities.TriggerManual)
}

func (c *Coordinator) fire(kind entities.TaskKind, trigger entities.RunTrigger) error {
	c.mu.Lock()

	e, ok := c.entries[kind]
	if !ok {
		c.mu.Unlock()
		return errors.Wrap(ErrUnknownTask, string(kind))
	}
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if trigger == entities.TriggerScheduled && e.schedule.Window != nil && !e.schedule.Window.Allows(c.now()) {
		c.mu.Unlock()
		skipped(kind, "outside_window")
		return nil
	}
	if !e.running.CompareAndSwap(false, true) {
		c.mu.Unlock()
		skipped(kind, "already_running")
		return ErrAlreadyRunning
	}

	ctx, runs := c.ctx, c.runs
	runs.Add(1)
	c.mu.Unlock()

	go func() {
		defer runs.Done()
		defer e.running.Store(false)
		c.execute(ctx, e, trigger)
	}()
	return nil
}

func skipped(kind entities.TaskKind, reason string) {
	log.Infof("skipping %v: %v", kind, reason)
	metrics.SkippedRunsCounter.WithLabelValues(string(kind), reason).Inc()
}

func (c *Coordinator) Pause(ctx context.Context, kind entities.TaskKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[kind]
	if !ok {
		return errors.Wrap(ErrUnknownTask, string(kind))
	}
	if e.paused {
		return nil
	}

	c.removeTimer(e)
	e.paused = true
	c.persistPaused(ctx, kind, true)

	log.Infof("%v paused", kind)
	return nil
}

// Resume restarts the timer of kind with the schedule it was registered with.
func (c *Coordinator) Resume(ctx context.Context, kind entities.TaskKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[kind]
	if !ok {
		return errors.Wrap(ErrUnknownTask, string(kind))
	}
	if !e.paused {
		return nil
	}

	if c.started && e.schedule.Enabled {
		if err := c.addTimer(e); err != nil {
			return err
		}
	}
	e.paused = false
	c.persistPaused(ctx, kind, false)

	log.Infof("%v resumed", kind)
	return nil
}

func (c *Coordinator) persistPaused(ctx context.Context, kind entities.TaskKind, paused bool) {
	if err := c.settings.SetBool(ctx, pausedKey(kind), paused); err != nil {
		log.Warnf("failed to persist pause state of %v: %v", kind, err)
	}
}
