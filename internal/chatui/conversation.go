package chatui

import (
	"strings"
	"time"

	"github.com/quillchat/quill/internal/client"
)

// ErrorReplyText is the fixed assistant-side placeholder shown when a send
// fails for any reason other than an expired session.
const ErrorReplyText = "Sorry, I encountered an error. Please try again."

// Conversation is the append-only chat timeline plus the single in-flight
// send guard. It has no knowledge of the network or the terminal: Submit
// reports whether a send should be issued, and exactly one of Resolve, Fail,
// or Unauthorized must follow each accepted Submit.
//
// All mutation happens on the UI event loop, so no locking is needed.
type Conversation struct {
	entries []Entry
	sending bool
}

// Entries returns the timeline in display order.
func (c *Conversation) Entries() []Entry {
	return c.entries
}

// Sending reports whether a send is in flight.
func (c *Conversation) Sending() bool {
	return c.sending
}

// Submit appends an optimistic user entry for the draft and marks the
// conversation as sending. It is a no-op when the draft is blank or a send is
// already in flight; ok reports whether the caller should issue the network
// call with the returned message.
func (c *Conversation) Submit(draft string, now time.Time) (message string, ok bool) {
	if strings.TrimSpace(draft) == "" || c.sending {
		return "", false
	}

	c.entries = append(c.entries, userEntry(draft, now))
	c.sending = true
	return draft, true
}

// Resolve completes the in-flight exchange with the assistant reply.
func (c *Conversation) Resolve(response string, at time.Time) {
	c.entries = append(c.entries, botEntry(response, clockID(at), at))
	c.sending = false
}

// Fail completes the in-flight exchange with the error placeholder. The
// optimistic user entry is never rolled back.
func (c *Conversation) Fail(now time.Time) {
	c.entries = append(c.entries, errorEntry(ErrorReplyText, now))
	c.sending = false
}

// Unauthorized completes the in-flight exchange without appending anything;
// the auth guard owns what happens next.
func (c *Conversation) Unauthorized() {
	c.sending = false
}

// ReplaceHistory swaps the whole timeline for the stored turns, two entries
// per turn in server order.
func (c *Conversation) ReplaceHistory(turns []client.Turn) {
	entries := make([]Entry, 0, 2*len(turns))
	for _, turn := range turns {
		pair := turnEntries(turn)
		entries = append(entries, pair[0], pair[1])
	}
	c.entries = entries
}
