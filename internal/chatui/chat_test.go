package chatui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/client"
)

func newTestChatModel(t *testing.T) chatModel {
	t.Helper()
	tokens := client.NewTokenStoreAt(t.TempDir())
	require.NoError(t, tokens.Save("tok-123"))
	api := client.New("http://127.0.0.1:0")
	return newChatModel(api, tokens, "tok-123", zap.NewNop().Sugar())
}

func pressEnter(m chatModel) (chatModel, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestEnterSubmitsDraft(t *testing.T) {
	m := newTestChatModel(t)
	m.input.SetValue("hello")

	m, cmd := pressEnter(m)

	// Optimistic entry is on screen before the send command has run.
	entries := m.conv.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, RoleUser, entries[0].Role)
	assert.Equal(t, "hello", entries[0].Content)
	assert.True(t, m.conv.Sending())
	assert.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
}

func TestEnterIgnoresBlankDraft(t *testing.T) {
	m := newTestChatModel(t)
	m.input.SetValue("   ")

	m, cmd := pressEnter(m)

	assert.Empty(t, m.conv.Entries())
	assert.Nil(t, cmd)
}

func TestEnterIgnoredWhileSending(t *testing.T) {
	m := newTestChatModel(t)
	m.input.SetValue("first")
	m, _ = pressEnter(m)

	m.input.SetValue("second")
	m, cmd := pressEnter(m)

	assert.Len(t, m.conv.Entries(), 1)
	assert.Nil(t, cmd)
	// The rejected draft stays in the composer.
	assert.Equal(t, "second", m.input.Value())
}

func TestReplyResolvesExchange(t *testing.T) {
	m := newTestChatModel(t)
	m.input.SetValue("hello")
	m, _ = pressEnter(m)

	serverTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m, _ = m.Update(replyMsg{reply: &client.Reply{Response: "hi there", Timestamp: serverTime}})

	entries := m.conv.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "hi there", entries[1].Content)
	assert.Equal(t, serverTime, entries[1].Timestamp)
	assert.False(t, m.conv.Sending())
}

func TestReplyFailureAppendsErrorEntry(t *testing.T) {
	m := newTestChatModel(t)
	m.input.SetValue("ping")
	m, _ = pressEnter(m)

	m, _ = m.Update(replyMsg{err: errors.New("connection refused")})

	entries := m.conv.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, RoleError, entries[1].Role)
	assert.Equal(t, ErrorReplyText, entries[1].Content)
	assert.False(t, m.conv.Sending())

	// The session survives a transient failure.
	_, ok := m.tokens.Load()
	assert.True(t, ok)
}

func TestReplyUnauthorizedEvictsSession(t *testing.T) {
	m := newTestChatModel(t)
	m.input.SetValue("hello")
	m, _ = pressEnter(m)

	m, cmd := m.Update(replyMsg{err: client.ErrUnauthorized})

	// No assistant entry for the rejected exchange.
	assert.Len(t, m.conv.Entries(), 1)
	assert.False(t, m.conv.Sending())

	_, ok := m.tokens.Load()
	assert.False(t, ok, "token should be cleared")

	require.NotNil(t, cmd)
	assert.Equal(t, sessionExpiredMsg{}, cmd())
}

func TestHistoryLoadReplacesTimeline(t *testing.T) {
	m := newTestChatModel(t)

	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m, _ = m.Update(historyMsg{turns: []client.Turn{
		{ID: "t1", Message: "a", Response: "b", Timestamp: when},
	}})

	entries := m.conv.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Content)
	assert.Equal(t, "b", entries[1].Content)
	assert.Equal(t, when, entries[0].Timestamp)
}

func TestHistoryLoadFailureKeepsSession(t *testing.T) {
	m := newTestChatModel(t)

	m, cmd := m.Update(historyMsg{err: errors.New("server down")})

	assert.Empty(t, m.conv.Entries())
	assert.Nil(t, cmd)

	// A failed history load must not evict the token.
	_, ok := m.tokens.Load()
	assert.True(t, ok)
}

func TestAppStartsOnLoginWithoutToken(t *testing.T) {
	tokens := client.NewTokenStoreAt(t.TempDir())
	app := NewApp(client.New("http://127.0.0.1:0"), tokens, zap.NewNop().Sugar())

	assert.Equal(t, viewLogin, app.view)
}

func TestAppStartsOnChatWithToken(t *testing.T) {
	tokens := client.NewTokenStoreAt(t.TempDir())
	require.NoError(t, tokens.Save("tok-123"))

	app := NewApp(client.New("http://127.0.0.1:0"), tokens, zap.NewNop().Sugar())

	assert.Equal(t, viewChat, app.view)
	assert.Equal(t, "tok-123", app.chat.token)
}

func TestAppReturnsToLoginOnSessionExpiry(t *testing.T) {
	tokens := client.NewTokenStoreAt(t.TempDir())
	require.NoError(t, tokens.Save("tok-123"))

	app := NewApp(client.New("http://127.0.0.1:0"), tokens, zap.NewNop().Sugar())

	updated, _ := app.Update(sessionExpiredMsg{})
	app = updated.(App)

	assert.Equal(t, viewLogin, app.view)
	assert.Contains(t, app.login.notice, "expired")
}

func TestAppEntersChatAfterLogin(t *testing.T) {
	tokens := client.NewTokenStoreAt(t.TempDir())
	app := NewApp(client.New("http://127.0.0.1:0"), tokens, zap.NewNop().Sugar())

	updated, _ := app.Update(sessionStartedMsg{token: "tok-456"})
	app = updated.(App)

	assert.Equal(t, viewChat, app.view)
	assert.Equal(t, "tok-456", app.chat.token)
}
