package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/job-autopilot/internal/config"
	"github.com/maxaizer/job-autopilot/internal/entities"
	"github.com/maxaizer/job-autopilot/internal/events"
	"github.com/maxaizer/job-autopilot/internal/logger"
	"github.com/maxaizer/job-autopilot/internal/scheduler"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type schedulerControl interface {
	Trigger(kind entities.TaskKind) error
	Pause(ctx context.Context, kind entities.TaskKind) error
	Resume(ctx context.Context, kind entities.TaskKind) error
	Status() []scheduler.TaskStatus
}

type challengeResolver interface {
	Resolve(response string) error
	Pending() bool
}

type filterRepository interface {
	Add(ctx context.Context, filter entities.SearchFilter) error
	List(ctx context.Context) ([]entities.SearchFilter, error)
	SetActive(ctx context.Context, id int, active bool) error
}

// Bot is the operator channel. It obeys a single chat.
type Bot struct {
	api       apiInterface
	botAPI    *botApi.BotAPI
	chatID    int64
	bus       EventBus.Bus
	scheduler schedulerControl
	resolver  challengeResolver
	filters   filterRepository
	context   *userContext
}

const backToMenuCommandName = "Back to menu"

var globalCommands = []string{addSearchCommandName, toggleSearchCommandName, backToMenuCommandName}

func NewBot(cfg config.BotConfig, bus EventBus.Bus, control schedulerControl, resolver challengeResolver,
	filters filterRepository) (*Bot, error) {

	api, err := botApi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	err = botApi.SetLogger(log.StandardLogger())
	if err != nil {
		return nil, err
	}

	createdBot, err := newBot(api, cfg.ChatID, bus, control, resolver, filters)
	if err != nil {
		return nil, err
	}
	createdBot.botAPI = api
	return createdBot, nil
}

func newBot(api apiInterface, chatID int64, bus EventBus.Bus, control schedulerControl,
	resolver challengeResolver, filters filterRepository) (*Bot, error) {

	if bus == nil {
		return nil, errors.New("bus is nil")
	}
	if control == nil {
		return nil, errors.New("scheduler is nil")
	}
	if resolver == nil {
		return nil, errors.New("challenge resolver is nil")
	}
	if filters == nil {
		return nil, errors.New("filter repository is nil")
	}

	createdBot := &Bot{api: api, chatID: chatID, bus: bus, scheduler: control, resolver: resolver,
		filters: filters, context: newUserContext(chatID)}

	if err := bus.SubscribeAsync(events.ChallengePendingTopic, createdBot.onChallengePending, false); err != nil {
		return nil, err
	}
	if err := bus.SubscribeAsync(events.ApplicationSubmittedTopic, createdBot.onApplicationSubmitted, false); err != nil {
		return nil, err
	}
	if err := bus.SubscribeAsync(events.RunCompletedTopic, createdBot.onRunCompleted, false); err != nil {
		return nil, err
	}
	return createdBot, nil
}

// Run polls updates until Stop is called. Messages are handled one at a time.
func (b *Bot) Run() {

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.botAPI.GetUpdatesChan(updateConfig)

	for update := range updates {

		if update.Message == nil {
			continue
		}

		if update.Message.Chat.ID != b.chatID {
			log.Warnf("ignoring message from chat %v", update.Message.Chat.ID)
			continue
		}

		b.handleMessage(update.Message)
	}
}

func (b *Bot) Stop() {
	if b.botAPI != nil {
		b.botAPI.StopReceivingUpdates()
	}
}

func (b *Bot) handleMessage(message *botApi.Message) {

	cmd := message.Command()
	if cmd == "" && slices.Contains(globalCommands, message.Text) {
		cmd = message.Text
	}

	if cmd != "" {
		b.handleCommand(cmd, strings.TrimSpace(message.CommandArguments()))
	} else {
		b.handleInput(message.Text)
	}
}

func (b *Bot) handleCommand(command string, args string) {

	var response botApi.Chattable
	var err error

	switch command {
	case "start", "help":
		messageResponse := botApi.NewMessage(b.chatID, helpText())
		messageResponse.ReplyMarkup = defaultReplyKeyboard()
		response = messageResponse
		b.context.Reset()
	case "code":
		response = b.resolveChallenge(args)
	case "status":
		response = botApi.NewMessage(b.chatID, statusToText(b.scheduler.Status()))
	case "trigger", "pause", "resume":
		response = b.controlTask(command, args)
	case addSearchCommandName, toggleSearchCommandName:
		cmd, cmdErr := b.createCommand(command)
		if cmdErr != nil {
			err = fmt.Errorf("couldn't create %s: %w", command, cmdErr)
		} else {
			b.context.RunCommand(cmd)
		}
	case backToMenuCommandName:
		messageResponse := botApi.NewMessage(b.chatID, "Back in the main menu.")
		messageResponse.ReplyMarkup = defaultReplyKeyboard()
		response = messageResponse
		b.context.Reset()
	default:
		response = botApi.NewMessage(b.chatID, "Unknown command!")
	}

	if err != nil {
		if errors.Is(err, errorNoFilters) {
			response = botApi.NewMessage(b.chatID, "There are no searches yet.")
		} else {
			response = botApi.NewMessage(b.chatID, "Internal error!")
			log.Error(err)
		}
	}

	if response == nil {
		return
	}

	_, _ = sendWithLogError(b.api, response)
}

func (b *Bot) createCommand(name string) (command, error) {

	switch name {
	case addSearchCommandName:
		return newAddSearchCommand(b.api, b.chatID, b.filters), nil
	case toggleSearchCommandName:
		return newToggleSearchCommand(b.api, b.chatID, b.filters)
	default:
		return nil, fmt.Errorf("unknown command: %v", name)
	}
}

// handleInput feeds the running dialog. Without one, a pending challenge takes the text as its response.
func (b *Bot) handleInput(input string) {

	var response botApi.Chattable

	switch {
	case b.context.HasRunningCommand():
		b.context.OnUserInput(input)
	case b.resolver.Pending():
		response = b.resolveChallenge(input)
	default:
		response = botApi.NewMessage(b.chatID, "A command is expected.")
	}

	if response == nil {
		return
	}

	_, _ = sendWithLogError(b.api, response)
}

func (b *Bot) resolveChallenge(code string) botApi.Chattable {

	code = strings.TrimSpace(code)
	if code == "" {
		return botApi.NewMessage(b.chatID, "Usage: /code <value>")
	}

	if err := b.resolver.Resolve(code); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeSession).Warnf("challenge response rejected: %v", err)
		return botApi.NewMessage(b.chatID, "No verification is waiting for a response.")
	}
	return botApi.NewMessage(b.chatID, "Response accepted, continuing login.")
}

func (b *Bot) controlTask(action string, args string) botApi.Chattable {

	kind, ok := entities.ParseTaskKind(args)
	if !ok {
		return botApi.NewMessage(b.chatID, fmt.Sprintf("Usage: /%s <kind>, kinds: %s", action, kindsText()))
	}

	var err error
	var done string
	switch action {
	case "trigger":
		done = "started"
		err = b.scheduler.Trigger(kind)
	case "pause":
		done = "paused"
		err = b.scheduler.Pause(context.Background(), kind)
	case "resume":
		done = "resumed"
		err = b.scheduler.Resume(context.Background(), kind)
	}

	switch {
	case err == nil:
		return botApi.NewMessage(b.chatID, fmt.Sprintf("%s %s.", kind, done))
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		return botApi.NewMessage(b.chatID, fmt.Sprintf("%s is already running.", kind))
	case errors.Is(err, scheduler.ErrUnknownTask):
		return botApi.NewMessage(b.chatID, fmt.Sprintf("%s is not registered.", kind))
	default:
		log.Errorf("%s %s failed: %v", action, kind, err)
		return botApi.NewMessage(b.chatID, fmt.Sprintf("Couldn't %s %s: %v", action, kind, err))
	}
}

func (b *Bot) onChallengePending(event events.ChallengePending) {
	text := fmt.Sprintf("Login needs verification (%v).", event.Kind)
	if event.Prompt != "" {
		text += "\n" + event.Prompt
	}
	text += "\nReply with /code <value>."
	b.notify(text)
}

func (b *Bot) onApplicationSubmitted(event events.ApplicationSubmitted) {
	b.notify(fmt.Sprintf("Applied to \"%v\" at %v:\n%v", event.Title, event.Company, event.Url))
}

func (b *Bot) onRunCompleted(event events.RunCompleted) {
	if event.Log.Status != entities.RunError {
		return
	}
	b.notify(fmt.Sprintf("%v run failed (%v): %v", event.Log.Type, event.Log.ErrorClass, event.Log.ErrorMessage))
}

func (b *Bot) notify(text string) {
	_, _ = sendWithLogError(b.api, botApi.NewMessage(b.chatID, text))
}

func helpText() string {
	return "Commands:\n" +
		"/status - task schedule and last runs\n" +
		"/trigger <kind>, /pause <kind>, /resume <kind>\n" +
		"/code <value> - answer a login verification\n" +
		"Kinds: " + kindsText()
}

func kindsText() string {
	kinds := []entities.TaskKind{entities.TaskDiscovery, entities.TaskStatusCheck, entities.TaskResearch,
		entities.TaskAutoApply, entities.TaskMaintenance}
	names := make([]string, len(kinds))
	for i, kind := range kinds {
		names[i] = string(kind)
	}
	return strings.Join(names, ", ")
}

func statusToText(statuses []scheduler.TaskStatus) string {
	if len(statuses) == 0 {
		return "No tasks registered."
	}

	var text string
	for _, s := range statuses {
		text += fmt.Sprintf("%s (%s)", s.Kind, s.Schedule)
		switch {
		case s.Running:
			text += ": running"
		case s.Paused:
			text += ": paused"
		case !s.Enabled:
			text += ": disabled"
		}
		if s.LastRun != nil {
			text += fmt.Sprintf(", last %s at %s", s.LastStatus, s.LastRun.Format(time.DateTime))
		}
		if s.LastError != "" {
			text += " (" + s.LastError + ")"
		}
		if s.NextRun != nil {
			text += ", next " + s.NextRun.Format(time.DateTime)
		}
		text += "\n"
	}
	return text
}

func defaultReplyKeyboard() botApi.ReplyKeyboardMarkup {
	return botApi.NewReplyKeyboard(
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(addSearchCommandName),
			botApi.NewKeyboardButton(toggleSearchCommandName),
		),
	)
}

func keyboardWithExit() botApi.ReplyKeyboardMarkup {
	return botApi.NewReplyKeyboard(
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(backToMenuCommandName),
		),
	)
}
