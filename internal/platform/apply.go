package platform

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/pkg/errors"
)

var ErrNoEasyApply = errors.New("job cannot be applied to from the platform")

type FormStep string

const (
	StepContactInfo  FormStep = "contact_info"
	StepResumeUpload FormStep = "resume_upload"
	StepCoverLetter  FormStep = "cover_letter"
	StepQuestions    FormStep = "questions"
	StepSubmit       FormStep = "submit"
	StepDone         FormStep = "done"
	StepUnknown      FormStep = "unknown"
)

// Profile is what the applicant fills into forms.
type Profile struct {
	Phone       string
	ResumePath  string
	CoverLetter string
}

// OpenApplication navigates to the job and opens its application form.
func (s *Source) OpenApplication(ctx context.Context, page Page, job entities.Job) error {
	target := job.Url
	if target == "" {
		target = s.url(s.selectors.JobPath + job.JobID + "/")
	}
	if err := page.Navigate(ctx, target); err != nil {
		return err
	}

	ok, err := page.Exists(ctx, s.selectors.EasyApplyButton)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoEasyApply
	}
	return page.Click(ctx, s.selectors.EasyApplyButton)
}

// ClassifyStep reports which form step the page currently shows.
func (s *Source) ClassifyStep(ctx context.Context, page Page) (FormStep, error) {
	doc, err := s.document(ctx, page)
	if err != nil {
		return StepUnknown, err
	}
	return s.classify(doc), nil
}

func (s *Source) classify(doc *goquery.Document) FormStep {
	if doc.Find(s.selectors.SuccessMarker).Length() > 0 {
		return StepDone
	}

	modal := doc.Find(s.selectors.ApplyModal)
	if modal.Length() == 0 {
		return StepUnknown
	}

	switch {
	case modal.Find(s.selectors.SubmitButton).Length() > 0:
		return StepSubmit
	case modal.Find(s.selectors.ResumeInput).Length() > 0:
		return StepResumeUpload
	case modal.Find(s.selectors.CoverLetterInput).Length() > 0:
		return StepCoverLetter
	case modal.Find(s.selectors.PhoneInput).Length() > 0:
		return StepContactInfo
	case modal.Find(s.selectors.QuestionGroup).Length() > 0:
		return StepQuestions
	}
	return StepUnknown
}

// CompleteStep fills the current step and moves the form forward.
func (s *Source) CompleteStep(ctx context.Context, page Page, step FormStep, profile Profile) error {
	switch step {
	case StepContactInfo:
		if profile.Phone != "" {
			if err := page.Type(ctx, s.selectors.PhoneInput, profile.Phone); err != nil {
				return err
			}
		}
	case StepResumeUpload:
		if profile.ResumePath != "" {
			if err := page.Upload(ctx, s.selectors.ResumeInput, profile.ResumePath); err != nil {
				return err
			}
		}
	case StepCoverLetter:
		if profile.CoverLetter != "" {
			if err := page.Type(ctx, s.selectors.CoverLetterInput, profile.CoverLetter); err != nil {
				return err
			}
		}
	case StepQuestions:
		// questions keep their prefilled answers; an unanswerable form loops until the step limit
	case StepSubmit:
		return page.Click(ctx, s.selectors.SubmitButton)
	default:
		return fmt.Errorf("step %s cannot be completed", step)
	}
	return s.advance(ctx, page)
}

func (s *Source) advance(ctx context.Context, page Page) error {
	for _, button := range []string{s.selectors.NextButton, s.selectors.ReviewButton} {
		ok, err := page.Exists(ctx, button)
		if err != nil {
			return err
		}
		if ok {
			return page.Click(ctx, button)
		}
	}
	return errors.New("application form has no button to continue")
}
