package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDbContext(t *testing.T) *DbContext {
	t.Helper()

	dbCtx, err := NewDbContext(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())

	t.Cleanup(func() { _ = dbCtx.Close() })
	return dbCtx
}

func seedJob(t *testing.T, jobs *Jobs, id string, score int) entities.Job {
	t.Helper()
	job := entities.Job{JobID: id, Title: "Engineer", Company: "Acme", MatchScore: score, ScrapedAt: time.Now()}
	require.NoError(t, jobs.Upsert(context.Background(), job))
	return job
}

func Test_Jobs_Upsert_SameKeyTwice_ShouldKeepOneRowWithLastAttributes(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobsRepository(newTestDbContext(t).DB)

	first := entities.Job{JobID: "123", Title: "Engineer", Company: "Acme", MatchScore: 40,
		KeywordsMatched: []string{"go"}, ScrapedAt: time.Now()}
	require.NoError(t, jobs.Upsert(ctx, first))

	second := first
	second.MatchScore = 85
	second.KeywordsMatched = []string{"go", "sql"}
	require.NoError(t, jobs.Upsert(ctx, second))

	all, err := jobs.List(ctx, JobQuery{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 85, all[0].MatchScore)
	assert.Equal(t, []string{"go", "sql"}, all[0].KeywordsMatched)
}

func Test_Jobs_Upsert_ShouldNotResetAppliedFlag(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	jobs := NewJobsRepository(dbCtx.DB)
	apps := NewApplicationsRepository(dbCtx.DB)

	job := seedJob(t, jobs, "123", 50)
	require.NoError(t, apps.Create(ctx, entities.NewApplication(job.JobID, entities.SourceAuto, time.Now())))

	require.NoError(t, jobs.Upsert(ctx, job))

	stored, err := jobs.GetByID(ctx, "123")
	require.NoError(t, err)
	assert.True(t, stored.IsApplied)
}

func Test_Jobs_GetByID_WhenMissing_ShouldReturnNil(t *testing.T) {
	jobs := NewJobsRepository(newTestDbContext(t).DB)

	job, err := jobs.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, job)

	exists, err := jobs.Exists(context.Background(), "missing")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func Test_Jobs_RemoveStale_ShouldKeepAppliedAndFreshJobs(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	jobs := NewJobsRepository(dbCtx.DB)
	apps := NewApplicationsRepository(dbCtx.DB)
	old := time.Now().AddDate(0, 0, -60)

	require.NoError(t, jobs.Upsert(ctx, entities.Job{JobID: "old", ScrapedAt: old}))
	require.NoError(t, jobs.Upsert(ctx, entities.Job{JobID: "old-applied", ScrapedAt: old}))
	require.NoError(t, jobs.Upsert(ctx, entities.Job{JobID: "fresh", ScrapedAt: time.Now()}))
	require.NoError(t, apps.Create(ctx, entities.NewApplication("old-applied", entities.SourceManual, old)))

	removed, err := jobs.RemoveStale(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := jobs.List(ctx, JobQuery{}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func Test_Jobs_ListEligibleForApply_ShouldSkipAppliedAndLowScores(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	jobs := NewJobsRepository(dbCtx.DB)
	apps := NewApplicationsRepository(dbCtx.DB)

	seedJob(t, jobs, "low", 10)
	seedJob(t, jobs, "high", 90)
	seedJob(t, jobs, "mid", 60)
	seedJob(t, jobs, "applied", 95)
	require.NoError(t, apps.Create(ctx, entities.NewApplication("applied", entities.SourceAuto, time.Now())))

	eligible, err := jobs.ListEligibleForApply(ctx, 50, 10)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "high", eligible[0].JobID)
	assert.Equal(t, "mid", eligible[1].JobID)
}

func Test_Applications_CreateTwice_ShouldFailWithConflict(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	jobs := NewJobsRepository(dbCtx.DB)
	apps := NewApplicationsRepository(dbCtx.DB)
	seedJob(t, jobs, "123", 50)

	require.NoError(t, apps.Create(ctx, entities.NewApplication("123", entities.SourceAuto, time.Now())))
	err := apps.Create(ctx, entities.NewApplication("123", entities.SourceManual, time.Now().Add(time.Second)))
	assert.ErrorIs(t, err, ErrAlreadyApplied)

	job, err := jobs.GetByID(ctx, "123")
	require.NoError(t, err)
	assert.True(t, job.IsApplied)
}

func Test_Applications_Create_WhenJobMissing_ShouldFail(t *testing.T) {
	apps := NewApplicationsRepository(newTestDbContext(t).DB)

	err := apps.Create(context.Background(), entities.NewApplication("ghost", entities.SourceManual, time.Now()))
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func Test_Applications_CreateWithinDailyCap_ShouldRejectPastCap(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	jobs := NewJobsRepository(dbCtx.DB)
	apps := NewApplicationsRepository(dbCtx.DB)
	for _, id := range []string{"1", "2", "3"} {
		seedJob(t, jobs, id, 50)
	}
	startOfDay := time.Now().Truncate(24 * time.Hour)

	require.NoError(t, apps.CreateWithinDailyCap(ctx, entities.NewApplication("1", entities.SourceAuto, time.Now()), 2, startOfDay))
	require.NoError(t, apps.CreateWithinDailyCap(ctx, entities.NewApplication("2", entities.SourceAuto, time.Now()), 2, startOfDay))
	err := apps.CreateWithinDailyCap(ctx, entities.NewApplication("3", entities.SourceAuto, time.Now()), 2, startOfDay)
	assert.ErrorIs(t, err, ErrDailyCapReached)

	job, err := jobs.GetByID(ctx, "3")
	require.NoError(t, err)
	assert.False(t, job.IsApplied)
}

func Test_Applications_AppendStatus_ShouldChainHistory(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	seedJob(t, NewJobsRepository(dbCtx.DB), "123", 50)
	apps := NewApplicationsRepository(dbCtx.DB)
	app := entities.NewApplication("123", entities.SourceAuto, time.Now())
	require.NoError(t, apps.Create(ctx, app))

	updates := []entities.ApplicationStatus{entities.StatusViewed, entities.StatusInReview, entities.StatusInterviewing}
	for _, status := range updates {
		changed, err := apps.AppendStatus(ctx, app.ApplicationID, status, time.Now())
		require.NoError(t, err)
		assert.True(t, changed)
	}
	changed, err := apps.AppendStatus(ctx, app.ApplicationID, entities.StatusInterviewing, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := apps.GetByID(ctx, app.ApplicationID)
	require.NoError(t, err)
	require.Len(t, stored.StatusHistory, len(updates))
	assert.Equal(t, entities.StatusApplied, stored.StatusHistory[0].PreviousStatus)
	for i := 1; i < len(stored.StatusHistory); i++ {
		assert.Equal(t, stored.StatusHistory[i-1].Status, stored.StatusHistory[i].PreviousStatus)
	}
	assert.NotNil(t, stored.LastChecked)
}

func Test_Applications_AppendStatus_WhenMissing_ShouldReturnNotFound(t *testing.T) {
	apps := NewApplicationsRepository(newTestDbContext(t).DB)

	_, err := apps.AppendStatus(context.Background(), "nope", entities.StatusViewed, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Applications_Delete_ShouldResetJobApplied(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	jobs := NewJobsRepository(dbCtx.DB)
	apps := NewApplicationsRepository(dbCtx.DB)
	seedJob(t, jobs, "123", 50)
	app := entities.NewApplication("123", entities.SourceManual, time.Now())
	require.NoError(t, apps.Create(ctx, app))

	require.NoError(t, apps.Delete(ctx, app.ApplicationID))

	job, err := jobs.GetByID(ctx, "123")
	require.NoError(t, err)
	assert.False(t, job.IsApplied)
	assert.ErrorIs(t, apps.Delete(ctx, app.ApplicationID), ErrNotFound)
}

func Test_Applications_ListForStatusCheck_ShouldSkipTerminalAndRecentlyChecked(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	jobs := NewJobsRepository(dbCtx.DB)
	apps := NewApplicationsRepository(dbCtx.DB)
	now := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		seedJob(t, jobs, id, 50)
		require.NoError(t, apps.Create(ctx, entities.NewApplication(id, entities.SourceAuto, now.Add(time.Duration(i)*time.Millisecond))))
	}
	a, _ := apps.GetByJobID(ctx, "a")
	b, _ := apps.GetByJobID(ctx, "b")
	_, err := apps.AppendStatus(ctx, a.ApplicationID, entities.StatusRejected, now)
	require.NoError(t, err)
	require.NoError(t, apps.TouchChecked(ctx, b.ApplicationID, now))

	due, err := apps.ListForStatusCheck(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "c", due[0].JobID)
}

func Test_Applications_CompactHistories_ShouldKeepNewestEntries(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	seedJob(t, NewJobsRepository(dbCtx.DB), "123", 50)
	apps := NewApplicationsRepository(dbCtx.DB)
	start := time.Now().AddDate(0, 0, -100)
	app := entities.NewApplication("123", entities.SourceAuto, start)
	require.NoError(t, apps.Create(ctx, app))

	statuses := []entities.ApplicationStatus{entities.StatusViewed, entities.StatusInReview,
		entities.StatusViewed, entities.StatusInReview, entities.StatusInterviewing}
	for i, status := range statuses {
		_, err := apps.AppendStatus(ctx, app.ApplicationID, status, start.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, err)
	}

	compacted, err := apps.CompactHistories(ctx, 2, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), compacted)

	stored, err := apps.GetByID(ctx, app.ApplicationID)
	require.NoError(t, err)
	require.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, entities.StatusInterviewing, stored.StatusHistory[1].Status)
	assert.Equal(t, entities.StatusInterviewing, stored.Status)
}

func Test_Companies_Upsert_ShouldReplaceAttributes(t *testing.T) {
	ctx := context.Background()
	companies := NewCompaniesRepository(newTestDbContext(t).DB)

	require.NoError(t, companies.Upsert(ctx, entities.Company{CompanyName: "Acme", Industry: "Software",
		Specialties: []string{"go", "cloud"}, Website: "acme.io", ScrapedAt: time.Now()}))
	require.NoError(t, companies.Upsert(ctx, entities.Company{CompanyName: "Acme", Industry: "Retail",
		ScrapedAt: time.Now()}))

	company, err := companies.GetByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Retail", company.Industry)
	assert.Empty(t, company.Website)
	assert.Empty(t, company.Specialties)
}

func Test_Companies_ListStaleNames_ShouldReturnUnresearchedCompanies(t *testing.T) {
	ctx := context.Background()
	dbCtx := newTestDbContext(t)
	jobs := NewJobsRepository(dbCtx.DB)
	companies := NewCompaniesRepository(dbCtx.DB)

	require.NoError(t, jobs.Upsert(ctx, entities.Job{JobID: "1", Company: "Acme"}))
	require.NoError(t, jobs.Upsert(ctx, entities.Job{JobID: "2", Company: "Acme"}))
	require.NoError(t, jobs.Upsert(ctx, entities.Job{JobID: "3", Company: "Globex"}))
	require.NoError(t, jobs.Upsert(ctx, entities.Job{JobID: "4", Company: "Initech"}))
	require.NoError(t, jobs.Upsert(ctx, entities.Job{JobID: "5", Company: ""}))
	require.NoError(t, companies.Upsert(ctx, entities.Company{CompanyName: "Globex", ScrapedAt: time.Now()}))
	require.NoError(t, companies.Upsert(ctx, entities.Company{CompanyName: "Initech", ScrapedAt: time.Now().AddDate(0, 0, -90)}))

	names, err := companies.ListStaleNames(ctx, time.Now().AddDate(0, 0, -30), 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Acme", "Initech"}, names)
}

func Test_Recruiters_Upsert_ShouldBeKeyedByProfileUrl(t *testing.T) {
	ctx := context.Background()
	recruiters := NewRecruitersRepository(newTestDbContext(t).DB)

	require.NoError(t, recruiters.Upsert(ctx, entities.Recruiter{ProfileUrl: "p/1", Name: "Ann", Company: "Acme"}))
	require.NoError(t, recruiters.Upsert(ctx, entities.Recruiter{ProfileUrl: "p/1", Name: "Ann B", Company: "Acme"}))

	list, err := recruiters.ListByCompany(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ann B", list[0].Name)
}

func Test_RunLogs_PruneOlderThan(t *testing.T) {
	ctx := context.Background()
	logs := NewRunLogsRepository(newTestDbContext(t).DB)

	require.NoError(t, logs.Add(ctx, entities.ScrapingLog{RunID: "old", Type: entities.TaskDiscovery,
		Status: entities.RunSuccess, CompletedAt: time.Now().AddDate(0, 0, -120)}))
	require.NoError(t, logs.Add(ctx, entities.ScrapingLog{RunID: "new", Type: entities.TaskDiscovery,
		Status: entities.RunError, CompletedAt: time.Now()}))

	pruned, err := logs.PruneOlderThan(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	latest, err := logs.LatestByKind(ctx, entities.TaskDiscovery)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.RunID)

	none, err := logs.LatestByKind(ctx, entities.TaskAutoApply)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func Test_Settings_Increment_ShouldAccumulate(t *testing.T) {
	ctx := context.Background()
	settings := NewSettingsRepository(newTestDbContext(t).DB)

	value, err := settings.Increment(ctx, "applications.2026-01-01", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	value, err = settings.Increment(ctx, "applications.2026-01-01", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), value)

	stored, err := settings.GetInt(ctx, "applications.2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored)
}

func Test_Settings_SetTwice_ShouldKeepLastWrite(t *testing.T) {
	ctx := context.Background()
	settings := NewSettingsRepository(newTestDbContext(t).DB)

	require.NoError(t, settings.SetBool(ctx, "scheduler.paused.auto-apply", true))
	require.NoError(t, settings.SetBool(ctx, "scheduler.paused.auto-apply", false))

	paused, err := settings.GetBool(ctx, "scheduler.paused.auto-apply")
	require.NoError(t, err)
	assert.False(t, paused)

	_, found, err := settings.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

type countingFilters struct {
	calls   int
	filters []entities.SearchFilter
}

func (c *countingFilters) GetActive(_ context.Context) ([]entities.SearchFilter, error) {
	c.calls++
	return c.filters, nil
}

func (c *countingFilters) Add(_ context.Context, filter entities.SearchFilter) error {
	c.filters = append(c.filters, filter)
	return nil
}

func (c *countingFilters) List(_ context.Context) ([]entities.SearchFilter, error) { return c.filters, nil }

func (c *countingFilters) MarkUsed(_ context.Context, _ int, _ time.Time) error { return nil }

func (c *countingFilters) SetActive(_ context.Context, _ int, _ bool) error { return nil }

func Test_CachedFilters_ShouldHitRepositoryOnceUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	repo := &countingFilters{filters: []entities.SearchFilter{{ID: 1, Name: "go"}}}
	cached := NewCachedFilters(repo)

	for i := 0; i < 3; i++ {
		filters, err := cached.GetActive(ctx)
		require.NoError(t, err)
		assert.Len(t, filters, 1)
	}
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, cached.MarkUsed(ctx, 1, time.Now()))
	_, err := cached.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)

	require.NoError(t, cached.Add(ctx, entities.SearchFilter{ID: 2, Name: "rust"}))
	filters, err := cached.GetActive(ctx)
	require.NoError(t, err)
	assert.Len(t, filters, 2)
	assert.Equal(t, 3, repo.calls)
}

func Test_Filters_GetActive(t *testing.T) {
	ctx := context.Background()
	filters := NewFiltersRepository(newTestDbContext(t).DB)

	require.NoError(t, filters.Add(ctx, entities.SearchFilter{Name: "go", Keywords: []string{"golang"}, IsActive: true}))
	require.NoError(t, filters.Add(ctx, entities.SearchFilter{Name: "rust", IsActive: false}))

	active, err := filters.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, []string{"golang"}, active[0].Keywords)

	require.NoError(t, filters.MarkUsed(ctx, active[0].ID, time.Now()))
	stored, err := filters.GetByName(ctx, "go")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsed)
	assert.ErrorIs(t, filters.SetActive(ctx, 999, true), ErrNotFound)

	all, err := filters.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func Test_Companies_ScrapedSince(t *testing.T) {
	ctx := context.Background()
	companies := NewCompaniesRepository(newTestDbContext(t).DB)
	require.NoError(t, companies.Upsert(ctx, entities.Company{CompanyName: "Acme", ScrapedAt: time.Now().AddDate(0, 0, -10)}))

	fresh, err := companies.ScrapedSince(ctx, "Acme", time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = companies.ScrapedSince(ctx, "Acme", time.Now().AddDate(0, 0, -5))
	require.NoError(t, err)
	assert.False(t, fresh)
}
