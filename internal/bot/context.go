package bot

// userContext holds the dialog the operator is currently in.
type userContext struct {
	chatID     int64
	curCommand command
}

func newUserContext(chatID int64) *userContext {
	return &userContext{chatID: chatID}
}

func (u *userContext) RunCommand(command command) {
	u.setCommand(command)
	u.curCommand.Run()
}

func (u *userContext) HasRunningCommand() bool {
	return u.curCommand != nil
}

func (u *userContext) OnUserInput(input string) {
	u.curCommand.OnUserInput(input)
}

func (u *userContext) Reset() {
	u.curCommand = nil
}

func (u *userContext) setCommand(command command) {
	u.curCommand = command
	u.curCommand.WithFinishCallback(func() {
		u.curCommand = nil
	})
	u.curCommand.WithKeyboardOnFinalMessage(defaultReplyKeyboard())
}
