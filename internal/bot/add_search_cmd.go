package bot

import (
	"context"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/logger"
	log "github.com/sirupsen/logrus"
)

const addSearchCommandName = "Add search"

type addSearchCommand struct {
	api                  apiInterface
	chatID               int64
	filters              filterRepository
	inputHandlers        []inputHandler
	curHandlerIndex      int
	filter               entities.SearchFilter
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newAddSearchCommand(api apiInterface, chatID int64, filters filterRepository) *addSearchCommand {

	cmd := &addSearchCommand{api: api, chatID: chatID, filters: filters, filter: entities.SearchFilter{IsActive: true}}

	name := newTextInput(chatID, "Enter a unique name for the search.", func(input string) {
		cmd.filter.Name = input
		cmd.curHandlerIndex++
	})
	name.AddValidation(notEmpty)

	keywords := newTextInput(chatID, "Enter comma separated keywords. For example, \"golang, backend\".",
		func(input string) {
			cmd.filter.Keywords = splitList(input)
			cmd.curHandlerIndex++
		})
	keywords.AddValidation(validation{
		function:     func(input string) bool { return len(splitList(input)) > 0 },
		errorMessage: "Enter at least one keyword.",
	})

	experience := newExperienceInput(chatID, func(levels []string) {
		cmd.filter.ExperienceLevels = levels
		cmd.curHandlerIndex++
	})

	jobTypes := newJobTypeInput(chatID, func(types []string) {
		cmd.filter.JobTypes = types
		cmd.curHandlerIndex++
	})

	locations := newTextInput(chatID, "Enter comma separated locations or \"-\" for any.", func(input string) {
		cmd.filter.Locations = splitList(input)
		cmd.curHandlerIndex++
	})
	locations.AddValidation(notEmpty)

	redFlags := newTextInput(chatID, "Enter comma separated red flag phrases to skip listings with, or \"-\" for none.",
		func(input string) {
			cmd.filter.RedFlags = splitList(input)
			cmd.curHandlerIndex++
		})
	redFlags.AddValidation(notEmpty)

	cmd.inputHandlers = []inputHandler{name, keywords, experience, jobTypes, locations, redFlags}
	return cmd
}

func (c *addSearchCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *addSearchCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *addSearchCommand) Run() {
	_, _ = sendWithLogError(c.api, c.inputHandlers[0].InitMessage())
}

func (c *addSearchCommand) OnUserInput(input string) {

	previousIndex := c.curHandlerIndex
	msg := c.inputHandlers[c.curHandlerIndex].HandleInput(input)

	handlerChanged := previousIndex != c.curHandlerIndex
	allHandlersFinished := c.curHandlerIndex >= len(c.inputHandlers)

	if !handlerChanged {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	if !allHandlersFinished {
		_, _ = sendWithLogError(c.api, c.inputHandlers[c.curHandlerIndex].InitMessage())
		return
	}

	c.addSearch()
	if c.finishCallback != nil {
		c.finishCallback()
	}
}

func (c *addSearchCommand) addSearch() {

	msg := botApi.NewMessage(c.chatID, "")
	if c.finalMessageKeyboard != nil {
		msg.ReplyMarkup = c.finalMessageKeyboard
	}

	if err := c.filters.Add(context.Background(), c.filter); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		msg.Text = "Internal error!"
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	msg.Text = "Search added!"
	_, _ = sendWithLogError(c.api, msg)
}
