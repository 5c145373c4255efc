package tasks

import (
	"context"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/events"
	"github.com/maxaizer/job-autopilot/internal/platform"
	"github.com/maxaizer/job-autopilot/internal/repositories"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// scriptedForm walks the same step script for every job it opens.
type scriptedForm struct {
	script    []platform.FormStep
	position  int
	completed []platform.FormStep
	openErr   error
	failStep  platform.FormStep
	failures  int
}

func (f *scriptedForm) OpenApplication(context.Context, platform.Page, entities.Job) error {
	f.position = 0
	return f.openErr
}

func (f *scriptedForm) ClassifyStep(context.Context, platform.Page) (platform.FormStep, error) {
	step := f.script[min(f.position, len(f.script)-1)]
	return step, nil
}

func (f *scriptedForm) CompleteStep(_ context.Context, _ platform.Page, step platform.FormStep, _ platform.Profile) error {
	if step == f.failStep && f.failures > 0 {
		f.failures--
		return errors.New("button is not clickable yet")
	}
	f.completed = append(f.completed, step)
	f.position++
	return nil
}

var happyForm = []platform.FormStep{
	platform.StepContactInfo, platform.StepResumeUpload, platform.StepQuestions, platform.StepSubmit, platform.StepDone,
}

type fakeCounters struct {
	values map[string]int64
}

func (f *fakeCounters) Increment(_ context.Context, key string, delta int64) (int64, error) {
	f.values[key] += delta
	return f.values[key], nil
}

type fakeEligibleJobs struct {
	jobs  []entities.Job
	calls int
	limit int
}

func (f *fakeEligibleJobs) ListEligibleForApply(_ context.Context, _ int, limit int) ([]entities.Job, error) {
	f.calls++
	f.limit = limit
	if len(f.jobs) > limit {
		return f.jobs[:limit], nil
	}
	return f.jobs, nil
}

type autoApplyFixture struct {
	task      *AutoApply
	sessions  *fakeSessions
	jobs      *fakeEligibleJobs
	apps      *mockApplications
	counters  *fakeCounters
	form      *scriptedForm
	submitted []events.ApplicationSubmitted
}

func newAutoApplyFixture(t *testing.T, script []platform.FormStep, jobs ...entities.Job) *autoApplyFixture {
	f := &autoApplyFixture{
		sessions: &fakeSessions{},
		jobs:     &fakeEligibleJobs{jobs: jobs},
		apps:     &mockApplications{},
		counters: &fakeCounters{values: map[string]int64{}},
		form:     &scriptedForm{script: script},
	}
	bus := EventBus.New()
	require.NoError(t, bus.Subscribe(events.ApplicationSubmittedTopic, func(e events.ApplicationSubmitted) {
		f.submitted = append(f.submitted, e)
	}))
	f.task = NewAutoApply(f.sessions, f.form, f.jobs, f.apps, f.counters, bus, nil, testLimits(), platform.Profile{})
	f.task.now = fixedNow
	return f
}

func eligibleJob(id string) entities.Job {
	return entities.Job{JobID: id, Title: "Go Engineer", Company: "Acme", Url: "https://jobs.example.com/view/" + id, MatchScore: 90}
}

func Test_AutoApply_WhenCapAlreadyReached_ShouldReturnBeforeLeasingSession(t *testing.T) {
	f := newAutoApplyFixture(t, happyForm, eligibleJob("1"))
	f.task.limits.MaxApplicationsPerDay = 2
	f.apps.On("CountSince", mock.Anything, startOfDay(testNow)).Return(int64(2), nil)

	outcome, err := f.task.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, outcome.ItemsProcessed)
	assert.Zero(t, f.sessions.leases)
	assert.Zero(t, f.jobs.calls)
	f.apps.AssertNotCalled(t, "CreateWithinDailyCap", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_AutoApply_ShouldLimitJobsToRemainingCapAndSubmitEach(t *testing.T) {
	f := newAutoApplyFixture(t, happyForm, eligibleJob("1"), eligibleJob("2"), eligibleJob("3"))
	f.task.limits.MaxApplicationsPerDay = 3
	f.apps.On("CountSince", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.apps.On("CreateWithinDailyCap", mock.Anything, mock.Anything, 3, startOfDay(testNow)).Return(nil).Twice()

	outcome, err := f.task.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, f.jobs.limit)
	assert.Equal(t, 2, outcome.ItemsProcessed)
	assert.Equal(t, int64(2), f.counters.values[DailyCounterKey(testNow)])
	require.Len(t, f.submitted, 2)
	assert.Equal(t, "1", f.submitted[0].JobID)
	assert.Equal(t, happyForm[:4], f.form.completed[:4])
	f.apps.AssertExpectations(t)
}

func Test_AutoApply_WhenCapIsReachedMidRun_ShouldStop(t *testing.T) {
	f := newAutoApplyFixture(t, happyForm, eligibleJob("1"), eligibleJob("2"))
	f.apps.On("CountSince", mock.Anything, mock.Anything).Return(int64(0), nil)
	f.apps.On("CreateWithinDailyCap", mock.Anything, mock.MatchedBy(func(app entities.Application) bool {
		return app.JobID == "1"
	}), mock.Anything, mock.Anything).Return(nil).Once()
	f.apps.On("CreateWithinDailyCap", mock.Anything, mock.MatchedBy(func(app entities.Application) bool {
		return app.JobID == "2"
	}), mock.Anything, mock.Anything).Return(repositories.ErrDailyCapReached).Once()

	outcome, err := f.task.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.ItemsProcessed)
	assert.Equal(t, 1, outcome.Details["cap_reached"])
	assert.Len(t, f.submitted, 1)
}

func Test_AutoApply_WhenFormFails_ShouldReleaseReservation(t *testing.T) {
	f := newAutoApplyFixture(t, []platform.FormStep{platform.StepUnknown}, eligibleJob("1"))
	f.apps.On("CountSince", mock.Anything, mock.Anything).Return(int64(0), nil)
	f.apps.On("CreateWithinDailyCap", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.apps.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()

	outcome, err := f.task.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, outcome.ItemsProcessed)
	assert.Equal(t, 1, outcome.ErrorsCount)
	assert.Empty(t, f.submitted)
	assert.Empty(t, f.counters.values)
	f.apps.AssertExpectations(t)
}

func Test_AutoApply_WhenAlreadyApplied_ShouldSkipJob(t *testing.T) {
	f := newAutoApplyFixture(t, happyForm, eligibleJob("1"))
	f.apps.On("CountSince", mock.Anything, mock.Anything).Return(int64(0), nil)
	f.apps.On("CreateWithinDailyCap", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(repositories.ErrAlreadyApplied)

	outcome, err := f.task.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, outcome.ItemsProcessed)
	assert.Equal(t, 1, outcome.Details["already_applied"])
	assert.Empty(t, f.form.completed)
}

func Test_ApplicationForm_ShouldRetryFailingStep(t *testing.T) {
	steps := &scriptedForm{script: happyForm, failStep: platform.StepResumeUpload, failures: 2}
	form := &applicationForm{steps: steps, retries: 2}

	err := form.submit(context.Background(), fakePage{}, eligibleJob("1"))

	require.NoError(t, err)
	assert.Equal(t, happyForm[:4], steps.completed)
}

func Test_ApplicationForm_WhenStepKeepsFailing_ShouldGiveUp(t *testing.T) {
	steps := &scriptedForm{script: happyForm, failStep: platform.StepSubmit, failures: 3}
	form := &applicationForm{steps: steps, retries: 2}

	err := form.submit(context.Background(), fakePage{}, eligibleJob("1"))

	assert.ErrorContains(t, err, "step submit failed after 3 attempts")
}

func Test_ApplicationForm_WhenFormNeverFinishes_ShouldStopAtTransitionLimit(t *testing.T) {
	steps := &scriptedForm{script: []platform.FormStep{platform.StepQuestions}}
	form := &applicationForm{steps: steps, retries: 2}

	err := form.submit(context.Background(), fakePage{}, eligibleJob("1"))

	assert.ErrorIs(t, err, errFormLoop)
	assert.Len(t, steps.completed, maxFormTransitions)
}

func Test_ApplicationForm_WhenFormGoesBack_ShouldFail(t *testing.T) {
	steps := &scriptedForm{script: []platform.FormStep{
		platform.StepContactInfo, platform.StepCoverLetter, platform.StepResumeUpload, platform.StepDone,
	}}
	form := &applicationForm{steps: steps, retries: 2}

	err := form.submit(context.Background(), fakePage{}, eligibleJob("1"))

	assert.ErrorIs(t, err, errFormWentBack)
}

func Test_ApplicationForm_WhenJobHasNoEasyApply_ShouldFailWithoutSteps(t *testing.T) {
	steps := &scriptedForm{script: happyForm, openErr: platform.ErrNoEasyApply}
	form := &applicationForm{steps: steps, retries: 2}

	err := form.submit(context.Background(), fakePage{}, eligibleJob("1"))

	assert.ErrorIs(t, err, platform.ErrNoEasyApply)
	assert.Empty(t, steps.completed)
}
