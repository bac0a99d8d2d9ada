// Package store provides access to the persistent message log.
package store

import (
	"context"
	"errors"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
)

// ErrNotPersisted is returned when a message could not be recorded.
// Callers must treat this as "not sent"; no retry is attempted here.
var ErrNotPersisted = errors.New("message not persisted")

// Store is the persistence collaborator for chat messages. Messages
// are scoped per user and persona index; ordering is by creation time.
type Store interface {
	// LoadHistory returns all persisted messages for the user/persona
	// pair, oldest first.
	LoadHistory(ctx context.Context, userID string, personaIndex int) ([]model.Message, error)

	// AppendMessage persists one message and returns it with the
	// server-assigned identifier and timestamp.
	AppendMessage(ctx context.Context, userID string, personaIndex int, text string, isUser bool) (model.Message, error)

	// Close releases underlying resources.
	Close() error
}
