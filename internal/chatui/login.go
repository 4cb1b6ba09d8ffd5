package chatui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/client"
)

type authMode int

const (
	modeLogin authMode = iota
	modeRegister
)

// authResultMsg carries the outcome of a login or register call.
type authResultMsg struct {
	creds *client.Credentials
	err   error
}

// sessionStartedMsg tells the app a token is saved and the chat view may start.
type sessionStartedMsg struct {
	token string
}

type loginModel struct {
	api    *client.Client
	tokens *client.TokenStore
	logger *zap.SugaredLogger

	email    textinput.Model
	password textinput.Model
	focus    int
	mode     authMode
	busy     bool
	notice   string
}

func newLoginModel(api *client.Client, tokens *client.TokenStore, logger *zap.SugaredLogger, notice string) loginModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.Prompt = "> "
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "> "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return loginModel{
		api:      api,
		tokens:   tokens,
		logger:   logger,
		email:    email,
		password: password,
		notice:   notice,
	}
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) authenticate(email, password string) tea.Cmd {
	api, mode := m.api, m.mode
	return func() tea.Msg {
		var (
			creds *client.Credentials
			err   error
		)
		if mode == modeRegister {
			creds, err = api.Register(context.Background(), email, password)
		} else {
			creds, err = api.Login(context.Background(), email, password)
		}
		return authResultMsg{creds: creds, err: err}
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
			m.focus = 1 - m.focus
			if m.focus == 0 {
				m.email.Focus()
				m.password.Blur()
			} else {
				m.password.Focus()
				m.email.Blur()
			}
			return m, nil

		case tea.KeyCtrlR:
			if m.mode == modeLogin {
				m.mode = modeRegister
			} else {
				m.mode = modeLogin
			}
			return m, nil

		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			email := strings.TrimSpace(m.email.Value())
			password := m.password.Value()
			if email == "" || password == "" {
				m.notice = "Email and password are required."
				return m, nil
			}
			m.busy = true
			m.notice = ""
			return m, m.authenticate(email, password)
		}

	case authResultMsg:
		m.busy = false
		if msg.err != nil {
			m.logger.Warnw("authentication failed", "error", msg.err)
			m.notice = msg.err.Error()
			return m, nil
		}
		if err := m.tokens.Save(msg.creds.Token); err != nil {
			m.logger.Warnw("token save failed", "error", err)
			m.notice = err.Error()
			return m, nil
		}
		token := msg.creds.Token
		return m, func() tea.Msg { return sessionStartedMsg{token: token} }
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.email, cmd = m.email.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m loginModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("quill"))
	b.WriteString("\n\n")

	if m.mode == modeRegister {
		b.WriteString("Create an account\n\n")
	} else {
		b.WriteString("Sign in\n\n")
	}

	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n\n")
	}

	if m.busy {
		b.WriteString(statusStyle.Render("signing in..."))
	} else {
		b.WriteString(helpStyle.Render("enter: submit · tab: next field · ctrl+r: toggle register · ctrl+c: quit"))
	}

	return b.String()
}
