package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/platform"
	"github.com/maxaizer/job-autopilot/internal/session"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

func fixedNow() time.Time {
	return testNow
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		MaxApplicationsPerDay: 10,
		MinMatchScore:         70,
		MaxJobsPerRun:         100,
		MaxEmptyBatches:       3,
		MaxBatches:            20,
		StatusCheckBatch:      50,
		StatusCheckEvery:      24 * time.Hour,
		ResearchBatch:         20,
		ResearchRefreshAfter:  30 * 24 * time.Hour,
		StepRetries:           2,
	}
}

type fakePage struct{}

func (fakePage) Navigate(context.Context, string) error { return nil }
func (fakePage) HTML(context.Context) (string, error) { return "", nil }
func (fakePage) Click(context.Context, string) error { return nil }
func (fakePage) Type(context.Context, string, string) error { return nil }
func (fakePage) Exists(context.Context, string) (bool, error) { return false, nil }
func (fakePage) Scroll(context.Context) error { return nil }
func (fakePage) Upload(context.Context, string, string) error { return nil }
func (fakePage) CurrentURL(context.Context) (string, error) { return "", nil }

type fakeSessions struct {
	leases int
	err    error
}

func (s *fakeSessions) WithLease(ctx context.Context, fn func(page session.Page) error) error {
	s.leases++
	if s.err != nil {
		return s.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(fakePage{})
}

func listing(id string) platform.Listing {
	return platform.Listing{
		ExternalID:  id,
		Title:       "Go Engineer " + id,
		Company:     "Acme",
		Description: "backend services in go",
		Url:         "https://jobs.example.com/view/" + id,
	}
}

func listings(from, to int) []platform.Listing {
	var result []platform.Listing
	for i := from; i < to; i++ {
		result = append(result, listing(fmt.Sprint(i)))
	}
	return result
}

// scriptedJobSource returns batches[n] for batch n and the last batch afterwards.
type scriptedJobSource struct {
	batches []platform.ListingBatch
	errs    map[int]error
	calls   int
}

func (s *scriptedJobSource) SearchBatch(_ context.Context, _ platform.Page, _ entities.SearchFilter, batch int) (platform.ListingBatch, error) {
	s.calls++
	if err, ok := s.errs[batch]; ok {
		return platform.ListingBatch{}, err
	}
	if batch < len(s.batches) {
		return s.batches[batch], nil
	}
	return s.batches[len(s.batches)-1], nil
}

func (s *scriptedJobSource) Validate(l platform.Listing) error {
	if l.Title == "" {
		return &platform.ValidationError{Err: errors.New("title is required")}
	}
	return nil
}

type fakeFilters struct {
	active []entities.SearchFilter
	used   []int
}

func (f *fakeFilters) GetActive(context.Context) ([]entities.SearchFilter, error) {
	return f.active, nil
}

func (f *fakeFilters) MarkUsed(_ context.Context, id int, _ time.Time) error {
	f.used = append(f.used, id)
	return nil
}

type fakeJobs struct {
	jobs      map[string]entities.Job
	upsertErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]entities.Job{}}
}

func (f *fakeJobs) Upsert(_ context.Context, job entities.Job) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.jobs[job.JobID] = job
	return nil
}

func (f *fakeJobs) Exists(_ context.Context, jobID string) (bool, error) {
	_, ok := f.jobs[jobID]
	return ok, nil
}

func (f *fakeJobs) GetByID(_ context.Context, jobID string) (*entities.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

type mockApplications struct {
	mock.Mock
}

func (m *mockApplications) ListForStatusCheck(ctx context.Context, checkedBefore time.Time, limit int) ([]entities.Application, error) {
	args := m.Called(ctx, checkedBefore, limit)
	return args.Get(0).([]entities.Application), args.Error(1)
}

func (m *mockApplications) AppendStatus(ctx context.Context, applicationID string, status entities.ApplicationStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, applicationID, status, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockApplications) TouchChecked(ctx context.Context, applicationID string, at time.Time) error {
	return m.Called(ctx, applicationID, at).Error(0)
}

func (m *mockApplications) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockApplications) CreateWithinDailyCap(ctx context.Context, app entities.Application, cap int, since time.Time) error {
	return m.Called(ctx, app, cap, since).Error(0)
}

func (m *mockApplications) Delete(ctx context.Context, applicationID string) error {
	return m.Called(ctx, applicationID).Error(0)
}

func (m *mockApplications) CompactHistories(ctx context.Context, keep int, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, keep, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type mockAiClient struct {
	mock.Mock
}

func (m *mockAiClient) GenerateResponse(ctx context.Context, request string) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}
