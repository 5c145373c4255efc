package platform

type Selectors struct {
	SearchPath      string
	ResultsList     string
	JobCard         string
	JobCardTitle    string
	JobCardLink     string
	JobCardCompany  string
	JobCardLocation string
	JobCardSalary   string
	JobCardInsight  string
	NextPage        string

	JobPath           string
	ApplicationStatus string

	CompanyPath        string
	CompanyName        string
	CompanyDescription string
	CompanyDetailTerm  string
	CompanyRecruiter   string

	EasyApplyButton   string
	ApplyModal        string
	SuccessMarker     string
	SubmitButton      string
	ReviewButton      string
	NextButton        string
	PhoneInput        string
	ResumeInput       string
	CoverLetterInput  string
	QuestionGroup     string
}

// DefaultSelectors target the public markup of the platform at the time of writing.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchPath:      "/jobs/search/",
		ResultsList:     "ul.scaffold-layout__list-container, ul.jobs-search__results-list",
		JobCard:         "li[data-occludable-job-id], div.job-card-container",
		JobCardTitle:    ".job-card-list__title, .base-search-card__title",
		JobCardLink:     "a.job-card-container__link, a.base-card__full-link",
		JobCardCompany:  ".artdeco-entity-lockup__subtitle, .base-search-card__subtitle",
		JobCardLocation: ".job-card-container__metadata-item, .job-search-card__location",
		JobCardSalary:   ".job-card-container__salary-info, .job-search-card__salary-info",
		JobCardInsight:  ".job-card-list__insight, .job-card-container__job-insight-text",
		NextPage:        "button[aria-label='View next page'], li.artdeco-pagination__indicator--number.active + li",

		JobPath:           "/jobs/view/",
		ApplicationStatus: ".post-apply-timeline__entity-time, .jobs-s-apply__application-link, .artdeco-inline-feedback__message",

		CompanyPath:        "/company/",
		CompanyName:        "h1",
		CompanyDescription: "section.org-about-module p, p.break-words",
		CompanyDetailTerm:  "dl dt",
		CompanyRecruiter:   ".org-people-profile-card__profile-info",

		EasyApplyButton:  "button.jobs-apply-button",
		ApplyModal:       "div.jobs-easy-apply-modal",
		SuccessMarker:    ".artdeco-inline-feedback--success, h3.jpac-modal-header",
		SubmitButton:     "button[aria-label='Submit application']",
		ReviewButton:     "button[aria-label='Review your application']",
		NextButton:       "button[aria-label='Continue to next step']",
		PhoneInput:       "input[id*='phoneNumber']",
		ResumeInput:      "input[type=file][name='file'], input[type=file][id*='resume']",
		CoverLetterInput: "textarea[id*='cover-letter'], input[type=file][id*='cover-letter']",
		QuestionGroup:    ".jobs-easy-apply-form-section__grouping",
	}
}
