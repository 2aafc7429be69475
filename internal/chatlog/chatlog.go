// Package chatlog records per-turn analytics for the chat agent.
package chatlog

import (
	"context"
	"errors"
)

// ErrSessionNotFound means feedback referenced a session with no logged
// turns.
var ErrSessionNotFound = errors.New("chatlog: session not found")

// Record is one completed turn as persisted to chat_analytics. EntitiesJSON
// carries the corrected entities serialized by the caller so the writer
// stays format-agnostic.
type Record struct {
	SessionID        string
	UserID           string
	UserInput        string
	EntitiesJSON     []byte
	GeneratedSQL     string
	QueryType        string
	SQLError         string
	ExecutionSuccess bool
	ResponseTimeMS   int64
}

// Feedback is a user rating attached after the fact to the latest turn of a
// session.
type Feedback struct {
	SessionID string
	Rating    int
	Text      string
}

// Writer persists turn analytics. Implementations must tolerate concurrent
// calls; the agent logs turns from goroutines it does not wait on.
type Writer interface {
	Write(ctx context.Context, record Record) error
	RecordFeedback(ctx context.Context, feedback Feedback) error
}
