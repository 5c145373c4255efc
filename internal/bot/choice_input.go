package bot

import (
	"fmt"
	"strconv"
	"strings"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type choice struct {
	label string
	value string
}

// choiceInput lets the operator pick any number of numbered options, "0" meaning no preference.
type choiceInput struct {
	chatID   int64
	question string
	choices  []choice
	onFinish func(values []string)
}

func newChoiceInput(chatID int64, question string, choices []choice, onFinish func(values []string)) *choiceInput {
	return &choiceInput{chatID: chatID, question: question, choices: choices, onFinish: onFinish}
}

func (a *choiceInput) InitMessage() botApi.Chattable {
	text := a.question + "\n0 - no preference"
	for i, c := range a.choices {
		text += fmt.Sprintf(", %d - %s", i+1, c.label)
	}
	text += "\nOptions can be combined: \"1, 3\""

	msg := botApi.NewMessage(a.chatID, text)
	msg.ReplyMarkup = keyboardWithExit()
	return msg
}

func (a *choiceInput) HandleInput(input string) botApi.Chattable {

	if strings.TrimSpace(input) == "0" {
		a.onFinish(nil)
		return nil
	}

	var values []string
	for _, part := range strings.Split(input, ",") {
		number, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || number < 1 || number > len(a.choices) {
			return botApi.NewMessage(a.chatID, "Invalid input.")
		}
		values = append(values, a.choices[number-1].value)
	}

	a.onFinish(values)
	return nil
}

var experienceChoices = []choice{
	{label: "internship", value: "internship"},
	{label: "entry level", value: "entry"},
	{label: "associate", value: "associate"},
	{label: "mid-senior", value: "mid_senior"},
	{label: "director", value: "director"},
}

var jobTypeChoices = []choice{
	{label: "full-time", value: "full_time"},
	{label: "part-time", value: "part_time"},
	{label: "contract", value: "contract"},
	{label: "remote", value: "remote"},
}

func newExperienceInput(chatID int64, onFinish func(levels []string)) *choiceInput {
	return newChoiceInput(chatID, "Choose experience levels.", experienceChoices, onFinish)
}

func newJobTypeInput(chatID int64, onFinish func(types []string)) *choiceInput {
	return newChoiceInput(chatID, "Choose job types.", jobTypeChoices, onFinish)
}
