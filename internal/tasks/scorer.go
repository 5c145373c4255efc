package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/logger"
	"github.com/maxaizer/job-autopilot/internal/platform"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type Score struct {
	Value    int
	Keywords []string
}

type Scorer interface {
	Score(ctx context.Context, filter entities.SearchFilter, listing platform.Listing) (Score, error)
}

// KeywordScorer rates a listing by the share of filter keywords it mentions.
// A keyword in the title counts twice as much as one in the description.
type KeywordScorer struct{}

func (KeywordScorer) Score(_ context.Context, filter entities.SearchFilter, listing platform.Listing) (Score, error) {
	keywords := lo.Uniq(lo.FilterMap(filter.Keywords, func(k string, _ int) (string, bool) {
		k = strings.ToLower(strings.TrimSpace(k))
		return k, k != ""
	}))
	if len(keywords) == 0 {
		return Score{Value: 50}, nil
	}

	title := strings.ToLower(listing.Title)
	body := strings.ToLower(listing.Description + " " + listing.ExperienceLevel)

	points := 0
	var matched []string
	for _, keyword := range keywords {
		switch {
		case strings.Contains(title, keyword):
			points += 2
		case strings.Contains(body, keyword):
			points++
		default:
			continue
		}
		matched = append(matched, keyword)
	}

	return Score{Value: points * 100 / (2 * len(keywords)), Keywords: matched}, nil
}

type aiClient interface {
	GenerateResponse(ctx context.Context, request string) (string, error)
}

// AIScorer asks Gemini for a match score and falls back to keywords when the answer is unusable.
type AIScorer struct {
	client   aiClient
	fallback Scorer
}

func NewAIScorer(client aiClient) *AIScorer {
	return &AIScorer{client: client, fallback: KeywordScorer{}}
}

type aiScore struct {
	Score    int      `json:"score"`
	Keywords []string `json:"keywords"`
}

func (s *AIScorer) Score(ctx context.Context, filter entities.SearchFilter, listing platform.Listing) (Score, error) {
	response, err := s.client.GenerateResponse(ctx, scoreRequest(filter, listing))
	if err == nil {
		var parsed aiScore
		if err = json.Unmarshal([]byte(stripFence(response)), &parsed); err == nil &&
			parsed.Score >= 0 && parsed.Score <= 100 {
			return Score{Value: parsed.Score, Keywords: parsed.Keywords}, nil
		}
		if err == nil {
			err = fmt.Errorf("score %d out of range", parsed.Score)
		}
	}
	if ctx.Err() != nil {
		return Score{}, ctx.Err()
	}

	log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).
		Errorf("ai scoring failed for %v, using keywords: %v", listing.Url, err)
	return s.fallback.Score(ctx, filter, listing)
}

// stripFence removes the markdown code fence models like to wrap JSON answers in.
func stripFence(response string) string {
	response = strings.Trim(strings.TrimSpace(response), "`")
	return strings.TrimSpace(strings.TrimPrefix(response, "json"))
}

func scoreRequest(filter entities.SearchFilter, listing platform.Listing) string {
	var b strings.Builder
	b.WriteString("You rate how well a job posting matches a job search. ")
	b.WriteString(`Answer only with JSON {"score": <0-100>, "keywords": [<search keywords the posting matches>]}.`)
	fmt.Fprintf(&b, "\nSearch keywords: %s", strings.Join(filter.Keywords, ", "))
	if len(filter.ExperienceLevels) > 0 {
		fmt.Fprintf(&b, "\nExperience levels: %s", strings.Join(filter.ExperienceLevels, ", "))
	}
	if len(filter.Locations) > 0 {
		fmt.Fprintf(&b, "\nLocations: %s", strings.Join(filter.Locations, ", "))
	}
	fmt.Fprintf(&b, "\nTitle: %s\nCompany: %s\nLocation: %s", listing.Title, listing.Company, listing.Location)
	if listing.SalaryRange != "" {
		fmt.Fprintf(&b, "\nSalary: %s", listing.SalaryRange)
	}
	if listing.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", listing.Description)
	}
	return b.String()
}

// redFlag returns the first filter red flag the listing mentions.
func redFlag(filter entities.SearchFilter, listing platform.Listing) (string, bool) {
	haystack := strings.ToLower(listing.Title + " " + listing.Company + " " + listing.Description)
	return lo.Find(filter.RedFlags, func(flag string) bool {
		flag = strings.ToLower(strings.TrimSpace(flag))
		return flag != "" && strings.Contains(haystack, flag)
	})
}
