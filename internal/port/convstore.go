package port

import (
	"context"
	"errors"

	"ragserver/internal/domain"
)

// ErrNotConfigured is returned by stores that were built without a backing
// database connection.
var ErrNotConfigured = errors.New("conversation store not configured")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ConversationStore persists conversations, their messages and query logs.
type ConversationStore interface {
	// Configured reports whether a backing database is available.
	Configured() bool

	// CreateConversation starts a new conversation with the given title.
	CreateConversation(ctx context.Context, title string) (domain.Conversation, error)

	// ListConversations returns the most recently updated conversations,
	// newest first, without their messages.
	ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error)

	// GetConversation returns a conversation with its messages in
	// chronological order. Returns ErrNotFound for unknown IDs.
	GetConversation(ctx context.Context, id string) (domain.Conversation, error)

	// RenameConversation updates the title of an existing conversation.
	RenameConversation(ctx context.Context, id, title string) (domain.Conversation, error)

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, id string) error

	// AddMessage appends a message to a conversation and bumps the
	// conversation's updated_at timestamp.
	AddMessage(ctx context.Context, msg domain.Message) (domain.Message, error)

	// LogQuery records a served query for later analysis.
	LogQuery(ctx context.Context, entry domain.QueryLog) error
}
