package chatui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/client"
)

// historyMsg carries the result of the initial history load.
type historyMsg struct {
	turns []client.Turn
	err   error
}

// replyMsg carries the result of a live send.
type replyMsg struct {
	reply *client.Reply
	err   error
}

// sessionExpiredMsg tells the app to tear down the chat view and return to
// the login view.
type sessionExpiredMsg struct{}

type chatModel struct {
	api    *client.Client
	tokens *client.TokenStore
	token  string
	logger *zap.SugaredLogger

	conv     Conversation
	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	width  int
	height int
}

func newChatModel(api *client.Client, tokens *client.TokenStore, token string, logger *zap.SugaredLogger) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.MiniDot))

	return chatModel{
		api:      api,
		tokens:   tokens,
		token:    token,
		logger:   logger,
		input:    input,
		viewport: viewport.New(80, 20),
		spin:     spin,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.loadHistory())
}

func (m chatModel) loadHistory() tea.Cmd {
	api, token := m.api, m.token
	return func() tea.Msg {
		turns, err := api.History(context.Background(), token)
		return historyMsg{turns: turns, err: err}
	}
}

func (m chatModel) send(message string) tea.Cmd {
	api, token := m.api, m.token
	return func() tea.Msg {
		reply, err := api.Send(context.Background(), token, message)
		return replyMsg{reply: reply, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		if m.viewport.Height < 1 {
			m.viewport.Height = 1
		}
		m.refreshTimeline()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter {
			message, ok := m.conv.Submit(m.input.Value(), time.Now())
			if !ok {
				return m, nil
			}
			m.input.Reset()
			m.refreshTimeline()
			return m, m.send(message)
		}

	case historyMsg:
		if msg.err != nil {
			// The timeline stays empty and the session stays intact; only a
			// rejected live send evicts the token.
			m.logger.Warnw("history load failed", "error", msg.err)
			return m, nil
		}
		m.conv.ReplaceHistory(msg.turns)
		m.refreshTimeline()
		return m, nil

	case replyMsg:
		switch {
		case msg.err == nil:
			m.conv.Resolve(msg.reply.Response, msg.reply.Timestamp)
		case errors.Is(msg.err, client.ErrUnauthorized):
			m.conv.Unauthorized()
			if err := m.tokens.Clear(); err != nil {
				m.logger.Warnw("token clear failed", "error", err)
			}
			return m, func() tea.Msg { return sessionExpiredMsg{} }
		default:
			m.logger.Warnw("send failed", "error", msg.err)
			m.conv.Fail(time.Now())
		}
		m.refreshTimeline()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *chatModel) refreshTimeline() {
	m.viewport.SetContent(renderEntries(m.conv.Entries(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("quill"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.conv.Sending() {
		b.WriteString(statusStyle.Render(m.spin.View() + " waiting for reply..."))
	} else {
		b.WriteString(helpStyle.Render("enter: send · ctrl+c: quit"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())

	return b.String()
}

func renderEntries(entries []Entry, width int) string {
	if len(entries) == 0 {
		return helpStyle.Render("No messages yet. Say hello!")
	}

	body := lipgloss.NewStyle()
	if width > 0 {
		body = body.Width(width)
	}

	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}

		var label string
		switch entry.Role {
		case RoleUser:
			label = userLabelStyle.Render("You")
		case RoleError:
			label = errorLabelStyle.Render("Quill")
		default:
			label = botLabelStyle.Render("Quill")
		}

		stamp := timestampStyle.Render(entry.Timestamp.Local().Format("15:04"))
		b.WriteString(fmt.Sprintf("%s %s\n", label, stamp))
		b.WriteString(body.Render(entry.Content))
		b.WriteString("\n")
	}

	return b.String()
}
