package bot

import (
	"context"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/logger"
	log "github.com/sirupsen/logrus"
)

const toggleSearchCommandName = "Toggle search"

// toggleSearchCommand enables a disabled filter or disables an active one.
type toggleSearchCommand struct {
	api                  apiInterface
	chatID               int64
	filters              filterRepository
	input                inputHandler
	selected             *entities.SearchFilter
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newToggleSearchCommand(api apiInterface, chatID int64, filters filterRepository) (*toggleSearchCommand, error) {

	cmd := toggleSearchCommand{api: api, chatID: chatID, filters: filters}
	input, err := newSearchInput(chatID, filters, func(f *entities.SearchFilter) {
		cmd.selected = f
	})
	if err != nil {
		return nil, err
	}
	cmd.input = input
	return &cmd, nil
}

func (c *toggleSearchCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *toggleSearchCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *toggleSearchCommand) Run() {
	_, _ = sendWithLogError(c.api, c.input.InitMessage())
}

func (c *toggleSearchCommand) OnUserInput(input string) {

	msg := c.input.HandleInput(input)

	if c.selected == nil {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	c.toggle(*c.selected)

	if c.finishCallback != nil {
		c.finishCallback()
	}
}

func (c *toggleSearchCommand) toggle(filter entities.SearchFilter) {

	msg := botApi.NewMessage(c.chatID, "")
	if c.finalMessageKeyboard != nil {
		msg.ReplyMarkup = c.finalMessageKeyboard
	}

	if err := c.filters.SetActive(context.Background(), filter.ID, !filter.IsActive); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		msg.Text = "Internal error!"
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	if filter.IsActive {
		msg.Text = "Search \"" + filter.Name + "\" disabled."
	} else {
		msg.Text = "Search \"" + filter.Name + "\" enabled."
	}
	_, _ = sendWithLogError(c.api, msg)
}
