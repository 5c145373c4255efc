package platform

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/job-autopilot/internal/entities"
)

var (
	slugCleaner  = regexp.MustCompile(`[^a-z0-9]+`)
	digitsFinder = regexp.MustCompile(`\d[\d,.]*`)
)

func companySlug(name string) string {
	return strings.Trim(slugCleaner.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// LookupCompany reads the about page of the company.
func (s *Source) LookupCompany(ctx context.Context, page Page, name string) (CompanyResult, error) {
	if err := page.Navigate(ctx, s.url(s.selectors.CompanyPath+companySlug(name)+"/about/")); err != nil {
		return CompanyResult{}, err
	}
	doc, err := s.document(ctx, page)
	if err != nil {
		return CompanyResult{}, err
	}
	return s.parseCompany(doc, name, time.Now()), nil
}

func (s *Source) parseCompany(doc *goquery.Document, name string, now time.Time) CompanyResult {
	if doc.Find(s.selectors.CompanyName).Length() == 0 {
		return CompanyResult{}
	}

	company := entities.Company{
		CompanyName: name,
		Description: text(doc.Find(s.selectors.CompanyDescription)),
		ScrapedAt:   now,
	}

	doc.Find(s.selectors.CompanyDetailTerm).Each(func(_ int, term *goquery.Selection) {
		value := text(term.NextFiltered("dd"))
		switch strings.ToLower(text(term)) {
		case "website":
			company.Website = value
		case "industry":
			company.Industry = value
		case "company size":
			company.Size = value
			company.EmployeesCount = firstNumber(value)
		case "headquarters":
			company.Location = value
		case "founded":
			company.FoundedYear = firstNumber(value)
		case "specialties":
			company.Specialties = splitList(value)
		}
	})

	result := CompanyResult{Found: true, Company: company}
	doc.Find(s.selectors.CompanyRecruiter).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find("a").First().Attr("href")
		if !ok {
			return
		}
		title := text(card.Find(".artdeco-entity-lockup__subtitle"))
		if !strings.Contains(strings.ToLower(title), "recruit") && !strings.Contains(strings.ToLower(title), "talent") {
			return
		}
		result.Recruiters = append(result.Recruiters, entities.Recruiter{
			ProfileUrl: s.canonicalURL(href),
			Name:       text(card.Find(".artdeco-entity-lockup__title")),
			Title:      title,
			Company:    name,
			ScrapedAt:  now,
		})
	})
	return result
}

func firstNumber(value string) int {
	match := digitsFinder.FindString(value)
	if match == "" {
		return 0
	}
	number, err := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(match))
	if err != nil {
		return 0
	}
	return number
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		item = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(item), "and "))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
