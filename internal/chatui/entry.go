// Package chatui is the terminal chat interface: a login view, a chat
// timeline view, and the session state machine that drives them.
package chatui

import (
	"strconv"
	"time"

	"github.com/quillchat/quill/internal/client"
)

// Role discriminates who authored a timeline entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleBot   Role = "bot"
	RoleError Role = "error"
)

// Entry is one renderable line in the chat timeline.
type Entry struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// entryID builds the stable identity "{role}-{sourceID}". History entries use
// the server turn id as source; live entries use the local clock.
func entryID(role Role, sourceID string) string {
	return string(role) + "-" + sourceID
}

func clockID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

func userEntry(content string, now time.Time) Entry {
	return Entry{
		ID:        entryID(RoleUser, clockID(now)),
		Role:      RoleUser,
		Content:   content,
		Timestamp: now,
	}
}

func botEntry(content string, sourceID string, at time.Time) Entry {
	return Entry{
		ID:        entryID(RoleBot, sourceID),
		Role:      RoleBot,
		Content:   content,
		Timestamp: at,
	}
}

func errorEntry(content string, now time.Time) Entry {
	return Entry{
		ID:        entryID(RoleError, clockID(now)),
		Role:      RoleError,
		Content:   content,
		Timestamp: now,
	}
}

// turnEntries expands one stored turn into its user and bot entries, both
// stamped with the turn's timestamp.
func turnEntries(turn client.Turn) [2]Entry {
	return [2]Entry{
		{
			ID:        entryID(RoleUser, turn.ID),
			Role:      RoleUser,
			Content:   turn.Message,
			Timestamp: turn.Timestamp,
		},
		{
			ID:        entryID(RoleBot, turn.ID),
			Role:      RoleBot,
			Content:   turn.Response,
			Timestamp: turn.Timestamp,
		},
	}
}
