package platform

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/pkg/errors"
)

// Page is the part of the leased browser the extractors need.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector string, text string) error
	Exists(ctx context.Context, selector string) (bool, error)
	Scroll(ctx context.Context) error
	Upload(ctx context.Context, selector string, path string) error
	CurrentURL(ctx context.Context) (string, error)
}

// Source reads the platform pages through a leased browser and turns them into typed results.
type Source struct {
	baseURL   string
	selectors Selectors
	pageSize  int
	validate  *validator.Validate
}

func NewSource(baseURL string, selectors Selectors) *Source {
	return &Source{
		baseURL:   strings.TrimRight(baseURL, "/"),
		selectors: selectors,
		pageSize:  25,
		validate:  validator.New(),
	}
}

// Listing is one job card of a search results page.
type Listing struct {
	ExternalID      string
	Title           string `validate:"required"`
	Company         string `validate:"required"`
	Location        string
	Description     string
	PostedDate      string
	Url             string `validate:"required,url"`
	SalaryRange     string
	ExperienceLevel string
}

// JobID is the platform id when the card has one and a derived key otherwise.
func (l Listing) JobID() string {
	if l.ExternalID != "" {
		return l.ExternalID
	}
	return entities.DeriveJobID(l.Url, l.Title, l.Company)
}

// ListingBatch is one results page. Found is false when the page held no result list at all.
type ListingBatch struct {
	Found    bool
	Listings []Listing
	HasMore  bool
}

// StatusResult is the application status shown on a job page. Found is false when the
// page does not show an application for the job.
type StatusResult struct {
	Found  bool
	Raw    string
	Status entities.ApplicationStatus
	Known  bool
}

type CompanyResult struct {
	Found      bool
	Company    entities.Company
	Recruiters []entities.Recruiter
}

// ValidationError marks a scraped payload that is missing required attributes.
type ValidationError struct {
	Subject string
	Err     error
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Subject + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (s *Source) Validate(listing Listing) error {
	if err := s.validate.Struct(listing); err != nil {
		return &ValidationError{Subject: "listing " + listing.Url, Err: err}
	}
	return nil
}

func (s *Source) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.baseURL + path
}

func (s *Source) document(ctx context.Context, page Page) (*goquery.Document, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "parse page html")
	}
	return doc, nil
}

func text(selection *goquery.Selection) string {
	return strings.Join(strings.Fields(selection.First().Text()), " ")
}
