package tasks

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/platform"
	"github.com/pkg/errors"
)

// maxFormTransitions bounds how many form pages one application may walk through.
const maxFormTransitions = 12

var (
	errFormLoop     = errors.New("application form did not finish within the step limit")
	errUnknownStep  = errors.New("application form step not recognised")
	errFormWentBack = errors.New("application form moved back to an earlier step")
)

// StepClassifier drives the application form of a job.
type StepClassifier interface {
	OpenApplication(ctx context.Context, page platform.Page, job entities.Job) error
	ClassifyStep(ctx context.Context, page platform.Page) (platform.FormStep, error)
	CompleteStep(ctx context.Context, page platform.Page, step platform.FormStep, profile platform.Profile) error
}

var stepOrder = map[platform.FormStep]int{
	platform.StepContactInfo:  0,
	platform.StepResumeUpload: 1,
	platform.StepCoverLetter:  2,
	platform.StepQuestions:    3,
	platform.StepSubmit:       4,
	platform.StepDone:         5,
}

// applicationForm walks contact_info -> resume_upload -> cover_letter -> questions -> submit -> done.
// Steps may be skipped or repeat (several question pages) but never go backwards.
type applicationForm struct {
	steps   StepClassifier
	profile platform.Profile
	retries int
	pacer   *Pacer
}

func (f *applicationForm) submit(ctx context.Context, page platform.Page, job entities.Job) error {
	if err := f.steps.OpenApplication(ctx, page, job); err != nil {
		return err
	}

	current := platform.FormStep("")
	unknown := 0
	for transition := 0; transition < maxFormTransitions; transition++ {
		step, err := f.steps.ClassifyStep(ctx, page)
		if err != nil {
			return err
		}

		if step == platform.StepDone {
			return nil
		}
		if step == platform.StepUnknown {
			if unknown++; unknown > f.retries {
				return errUnknownStep
			}
			if err = f.pacer.Wait(ctx); err != nil {
				return err
			}
			continue
		}
		unknown = 0

		if current != "" && stepOrder[step] < stepOrder[current] {
			return errors.Wrapf(errFormWentBack, "from %s to %s", current, step)
		}
		current = step

		if err = f.complete(ctx, page, step); err != nil {
			return err
		}
	}
	return errFormLoop
}

func (f *applicationForm) complete(ctx context.Context, page platform.Page, step platform.FormStep) error {
	var err error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			if err = f.pacer.Wait(ctx); err != nil {
				return err
			}
		}
		if err = f.steps.CompleteStep(ctx, page, step, f.profile); err == nil {
			return nil
		}
		if isFatal(ctx, err) {
			return err
		}
	}
	return fmt.Errorf("step %s failed after %d attempts: %w", step, f.retries+1, err)
}
