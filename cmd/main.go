package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-autopilot/internal/bot"
	"github.com/maxaizer/job-autopilot/internal/clients/browser"
	"github.com/maxaizer/job-autopilot/internal/clients/gemini"
	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/logger"
	"github.com/maxaizer/job-autopilot/internal/metrics"
	"github.com/maxaizer/job-autopilot/internal/platform"
	"github.com/maxaizer/job-autopilot/internal/repositories"
	"github.com/maxaizer/job-autopilot/internal/scheduler"
	"github.com/maxaizer/job-autopilot/internal/session"
	"github.com/maxaizer/job-autopilot/internal/tasks"
	log "github.com/sirupsen/logrus"
)

type stores struct {
	jobs         *repositories.Jobs
	applications *repositories.Applications
	companies    *repositories.Companies
	recruiters   *repositories.Recruiters
	filters      *repositories.CachedFilters
	runLogs      *repositories.RunLogs
	settings     *repositories.Settings
}

func newStores(dbContext *repositories.DbContext) stores {
	return stores{
		jobs:         repositories.NewJobsRepository(dbContext.DB),
		applications: repositories.NewApplicationsRepository(dbContext.DB),
		companies:    repositories.NewCompaniesRepository(dbContext.DB),
		recruiters:   repositories.NewRecruitersRepository(dbContext.DB),
		filters:      repositories.NewCachedFilters(repositories.NewFiltersRepository(dbContext.DB)),
		runLogs:      repositories.NewRunLogsRepository(dbContext.DB),
		settings:     repositories.NewSettingsRepository(dbContext.DB),
	}
}

func newScorer(ctx context.Context, cfg config.AIConfig) (tasks.Scorer, func()) {
	if !cfg.Enabled() {
		log.Info("AI key is not set, scoring by keywords")
		return tasks.KeywordScorer{}, func() {}
	}

	aiClient, err := gemini.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("can't create AI client: %v", err)
	}
	return tasks.NewAIScorer(aiClient), func() { _ = aiClient.Close() }
}

func registerTasks(coordinator *scheduler.Coordinator, cfg *config.Config, manager *session.Manager,
	source *platform.Source, scorer tasks.Scorer, s stores, bus EventBus.Bus) {

	pacer := tasks.NewPacer(cfg.Limits.PaceMin, cfg.Limits.PaceMax)

	coverLetter, err := cfg.Applicant.CoverLetter()
	if err != nil {
		log.Fatalf("can't load applicant profile: %v", err)
	}
	profile := platform.Profile{Phone: cfg.Applicant.Phone, ResumePath: cfg.Applicant.ResumePath, CoverLetter: coverLetter}

	autoApplySchedule := scheduler.Schedule{Every: cfg.Scheduler.AutoApplyInterval, Enabled: cfg.Scheduler.AutoApplyEnabled}
	if cfg.Scheduler.BusinessHoursOnly {
		autoApplySchedule.Window = scheduler.NewBusinessHours(cfg.Scheduler)
	}

	registrations := []struct {
		task     tasks.Task
		schedule scheduler.Schedule
	}{
		{
			tasks.NewDiscovery(manager, source, s.filters, s.jobs, scorer, pacer, cfg.Limits),
			scheduler.Schedule{Every: cfg.Scheduler.DiscoveryInterval, Enabled: true},
		},
		{
			tasks.NewStatusCheck(manager, source, s.applications, s.jobs, pacer, cfg.Limits),
			scheduler.Schedule{Every: cfg.Scheduler.StatusCheckInterval, Enabled: true},
		},
		{
			tasks.NewResearch(manager, source, s.companies, s.recruiters, pacer, cfg.Limits),
			scheduler.Schedule{Every: cfg.Scheduler.ResearchInterval, Enabled: true},
		},
		{
			tasks.NewAutoApply(manager, source, s.jobs, s.applications, s.settings, bus, pacer, cfg.Limits, profile),
			autoApplySchedule,
		},
		{
			tasks.NewMaintenance(s.jobs, s.runLogs, s.applications, cfg.Retention),
			scheduler.Schedule{Cron: cfg.Scheduler.MaintenanceCron, Enabled: true},
		},
	}

	for _, r := range registrations {
		if err := coordinator.Register(r.task, r.schedule); err != nil {
			log.Fatalf("can't register %v: %v", r.task.Kind(), err)
		}
	}
}

func runBot(cfg config.BotConfig, bus EventBus.Bus, coordinator *scheduler.Coordinator,
	resolver *session.ChallengeResolver, filters *repositories.CachedFilters) (stop func()) {

	if !cfg.Enabled() {
		log.Info("bot token is not set, operator bot disabled")
		return func() {}
	}

	tgbot, err := bot.NewBot(cfg, bus, coordinator, resolver, filters)
	if err != nil {
		log.Fatalf("can't create bot: %v", err)
	}
	go tgbot.Run()
	return tgbot.Stop
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	if cfg.Metrics.Enabled {
		server := metrics.StartMetricsServer(cfg.Metrics.Port)
		defer func() { _ = server.Close() }()
	}

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	s := newStores(dbContext)
	bus := EventBus.New()

	resolver := session.NewChallengeResolver()
	browserClient := browser.NewClient(cfg.Browser, cfg.Session.BaseURL, browser.DefaultSelectors())
	manager := session.NewManager(browserClient, session.Options{
		Email:            cfg.Session.Email,
		Password:         cfg.Session.Password,
		CookieJarPath:    cfg.Session.CookieJarPath,
		FreshStart:       cfg.Session.FreshStart,
		Interactive:      cfg.Session.Interactive,
		MaxLoginAttempts: cfg.Session.MaxLoginAttempts,
		BackoffBase:      cfg.Session.BackoffBase,
		BackoffMax:       cfg.Session.BackoffMax,
		ActionsPerMinute: cfg.Session.ActionsPerMinute,
	}, bus, resolver)
	defer func() {
		if err := manager.Close(); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).Errorf("can't close browser: %v", err)
		}
	}()

	source := platform.NewSource(cfg.Session.BaseURL, platform.DefaultSelectors())
	scorer, closeScorer := newScorer(ctx, cfg.AI)
	defer closeScorer()

	coordinator := scheduler.NewCoordinator(s.runLogs, s.settings, bus, cfg.Scheduler)
	registerTasks(coordinator, cfg, manager, source, scorer, s, bus)

	if err := coordinator.Start(ctx); err != nil {
		log.Fatalf("can't start scheduler: %v", err)
	}

	stopBot := runBot(cfg.Bot, bus, coordinator, resolver, s.filters)

	// the first discovery runs right away instead of waiting a full interval
	if err := coordinator.Trigger(entities.TaskDiscovery); err != nil {
		log.Warnf("initial discovery not started: %v", err)
	}

	<-ctx.Done()

	log.Info("Shutting down services...")
	stopBot()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.DrainTimeout)
	defer cancel()
	if err := coordinator.Stop(drainCtx); err != nil {
		log.Warnf("in-flight runs abandoned: %v", err)
	}
	log.Info("Services stopped.")
}
