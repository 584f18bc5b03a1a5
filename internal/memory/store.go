// Package memory persists chat sessions and their message history.
package memory

import (
	"context"
	"time"
)

// Store conversation history storage
type Store interface {
	CreateSession(ctx context.Context) (string, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	GetLatestSession(ctx context.Context) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
	ClearSession(ctx context.Context, sessionID string) error

	SaveMessage(ctx context.Context, sessionID string, msg *Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	Close() error
}

// Session one chat conversation
type Session struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Message one stored chat message
type Message struct {
	ID         int64
	SessionID  string
	Role       string // "user" | "assistant" | "tool"
	Content    string
	ToolCalls  string // JSON encoded tool calls of an assistant message
	ToolCallID string // tool call answered by a tool message
	CreatedAt  time.Time
}
