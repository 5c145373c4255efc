package platform

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/job-autopilot/internal/entities"
)

func (s *Source) searchURL(filter entities.SearchFilter, batch int) string {
	query := url.Values{}
	query.Set("keywords", strings.Join(filter.Keywords, " "))
	if len(filter.Locations) > 0 {
		query.Set("location", strings.Join(filter.Locations, ", "))
	}
	if len(filter.ExperienceLevels) > 0 {
		query.Set("experience", strings.Join(filter.ExperienceLevels, ","))
	}
	if len(filter.JobTypes) > 0 {
		query.Set("job_type", strings.Join(filter.JobTypes, ","))
	}
	if batch > 0 {
		query.Set("start", strconv.Itoa(batch*s.pageSize))
	}
	return s.url(s.selectors.SearchPath) + "?" + query.Encode()
}

// SearchBatch loads results page number batch (zero based) for the filter.
func (s *Source) SearchBatch(ctx context.Context, page Page, filter entities.SearchFilter, batch int) (ListingBatch, error) {
	if err := page.Navigate(ctx, s.searchURL(filter, batch)); err != nil {
		return ListingBatch{}, err
	}
	// result lists are rendered lazily while scrolling
	for i := 0; i < 3; i++ {
		if err := page.Scroll(ctx); err != nil {
			return ListingBatch{}, err
		}
	}

	doc, err := s.document(ctx, page)
	if err != nil {
		return ListingBatch{}, err
	}
	return s.parseListings(doc), nil
}

func (s *Source) parseListings(doc *goquery.Document) ListingBatch {
	list := doc.Find(s.selectors.ResultsList)
	if list.Length() == 0 {
		return ListingBatch{}
	}

	batch := ListingBatch{Found: true, HasMore: doc.Find(s.selectors.NextPage).Length() > 0}
	list.Find(s.selectors.JobCard).Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Find(s.selectors.JobCardLink).First().Attr("href")
		listing := Listing{
			ExternalID:  cardID(card),
			Title:       text(card.Find(s.selectors.JobCardTitle)),
			Company:     text(card.Find(s.selectors.JobCardCompany)),
			Location:    text(card.Find(s.selectors.JobCardLocation)),
			SalaryRange: text(card.Find(s.selectors.JobCardSalary)),
			Description: text(card.Find(s.selectors.JobCardInsight)),
			Url:         s.canonicalURL(href),
		}
		if datetime, ok := card.Find("time").First().Attr("datetime"); ok {
			listing.PostedDate = datetime
		}
		batch.Listings = append(batch.Listings, listing)
	})
	return batch
}

func cardID(card *goquery.Selection) string {
	for _, attr := range []string{"data-occludable-job-id", "data-job-id"} {
		if id, ok := card.Attr(attr); ok && id != "" {
			return id
		}
	}
	if urn, ok := card.Find("[data-entity-urn]").First().Attr("data-entity-urn"); ok {
		if i := strings.LastIndex(urn, ":"); i >= 0 {
			return urn[i+1:]
		}
	}
	return ""
}

// canonicalURL makes the link absolute and strips tracking parameters.
func (s *Source) canonicalURL(href string) string {
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if !parsed.IsAbs() {
		base, err := url.Parse(s.baseURL)
		if err != nil {
			return ""
		}
		parsed = base.ResolveReference(parsed)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}
