package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var errorNoFilters = errors.New("no search filters")

type searchInput struct {
	chatID   int64
	filters  []entities.SearchFilter
	onFinish func(filter *entities.SearchFilter)
}

func newSearchInput(chatID int64, filterRepo filterRepository, onFinish func(filter *entities.SearchFilter)) (*searchInput, error) {
	filters, err := filterRepo.List(context.Background())
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		return nil, err
	}
	if len(filters) == 0 {
		return nil, errorNoFilters
	}
	return &searchInput{chatID: chatID, filters: filters, onFinish: onFinish}, nil
}

func (s *searchInput) InitMessage() botApi.Chattable {

	text := "Enter the search number:\n"
	text += filtersToText(s.filters)

	msg := botApi.NewMessage(s.chatID, text)
	msg.ReplyMarkup = keyboardWithExit()
	return msg
}

func (s *searchInput) HandleInput(input string) botApi.Chattable {

	number, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return botApi.NewMessage(s.chatID, "Enter a number!")
	}

	if number < 1 || number > len(s.filters) {
		return botApi.NewMessage(s.chatID, "There is no search with this number.")
	}

	s.onFinish(&s.filters[number-1])
	return nil
}

func filtersToText(filters []entities.SearchFilter) (text string) {
	for i, filter := range filters {

		text += fmt.Sprintf("%d: \"%s\" [%s]", i+1, filter.Name, strings.Join(filter.Keywords, ", "))

		if len(filter.Locations) == 0 {
			text += ", any location"
		} else {
			text += ", " + strings.Join(filter.Locations, "/")
		}

		if len(filter.ExperienceLevels) > 0 {
			text += ", experience: " + strings.Join(filter.ExperienceLevels, "/")
		}
		if len(filter.JobTypes) > 0 {
			text += ", type: " + strings.Join(filter.JobTypes, "/")
		}

		if filter.IsActive {
			text += ", active"
		} else {
			text += ", disabled"
		}

		if filter.LastUsed != nil {
			text += ", last used " + filter.LastUsed.Format("2006-01-02 15:04")
		}
		text += "\n"
	}
	return text
}
