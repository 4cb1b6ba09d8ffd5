package chatui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/client"
)

type view int

const (
	viewLogin view = iota
	viewChat
)

// App is the root bubbletea model. It guards the chat view behind a present
// session token: without one the login view is shown, and an expired session
// tears the chat view down and returns to login.
type App struct {
	api    *client.Client
	tokens *client.TokenStore
	logger *zap.SugaredLogger

	view  view
	login loginModel
	chat  chatModel

	width  int
	height int
}

func NewApp(api *client.Client, tokens *client.TokenStore, logger *zap.SugaredLogger) App {
	app := App{api: api, tokens: tokens, logger: logger}

	if token, ok := tokens.Load(); ok {
		app.view = viewChat
		app.chat = newChatModel(api, tokens, token, logger)
	} else {
		app.view = viewLogin
		app.login = newLoginModel(api, tokens, logger, "")
	}

	return app
}

func (a App) Init() tea.Cmd {
	if a.view == viewChat {
		return a.chat.Init()
	}
	return a.login.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case sessionStartedMsg:
		a.chat = newChatModel(a.api, a.tokens, msg.token, a.logger)
		a.view = viewChat
		cmds := []tea.Cmd{a.chat.Init()}
		if a.width > 0 {
			resized, cmd := a.chat.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
			a.chat = resized
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case sessionExpiredMsg:
		a.login = newLoginModel(a.api, a.tokens, a.logger, "Session expired. Please sign in again.")
		a.view = viewLogin
		return a, a.login.Init()
	}

	var cmd tea.Cmd
	if a.view == viewChat {
		a.chat, cmd = a.chat.Update(msg)
	} else {
		a.login, cmd = a.login.Update(msg)
	}

	return a, cmd
}

func (a App) View() string {
	if a.view == viewChat {
		return a.chat.View()
	}
	return a.login.View()
}
