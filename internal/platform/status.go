package platform

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/job-autopilot/internal/entities"
)

// statusPhrases are checked in order, so later stages win over "applied".
var statusPhrases = []struct {
	phrase string
	status entities.ApplicationStatus
}{
	{"withdrawn", entities.StatusWithdrawn},
	{"no longer", entities.StatusRejected},
	{"not selected", entities.StatusRejected},
	{"not moving forward", entities.StatusRejected},
	{"rejected", entities.StatusRejected},
	{"offer", entities.StatusOffered},
	{"interview", entities.StatusInterviewing},
	{"in review", entities.StatusInReview},
	{"under review", entities.StatusInReview},
	{"viewed", entities.StatusViewed},
	{"applied", entities.StatusApplied},
}

func (s *Source) jobURL(app entities.Application, job *entities.Job) string {
	if job != nil && job.Url != "" {
		return job.Url
	}
	return s.url(s.selectors.JobPath + app.JobID + "/")
}

// FetchStatus reads the application status from the job page.
func (s *Source) FetchStatus(ctx context.Context, page Page, app entities.Application, job *entities.Job) (StatusResult, error) {
	if err := page.Navigate(ctx, s.jobURL(app, job)); err != nil {
		return StatusResult{}, err
	}
	doc, err := s.document(ctx, page)
	if err != nil {
		return StatusResult{}, err
	}
	return s.parseStatus(doc), nil
}

func (s *Source) parseStatus(doc *goquery.Document) StatusResult {
	selection := doc.Find(s.selectors.ApplicationStatus)
	if selection.Length() == 0 {
		return StatusResult{}
	}

	raw := text(selection)
	status, known := MatchStatus(raw)
	return StatusResult{Found: true, Raw: raw, Status: status, Known: known}
}

// MatchStatus maps the text of a status badge to an application status.
func MatchStatus(raw string) (entities.ApplicationStatus, bool) {
	lower := strings.ToLower(raw)
	for _, candidate := range statusPhrases {
		if strings.Contains(lower, candidate.phrase) {
			return candidate.status, true
		}
	}
	return "", false
}
