package model

import (
	"context"
)

// CheckpointStore persists ConversationState keyed by thread id.
type CheckpointStore interface {
	// Load returns the stored state, or an empty state for an unknown thread.
	Load(ctx context.Context, threadID string) (*ConversationState, error)

	// Save persists next. prev is the state Load returned for this turn; stores
	// use it to write only the messages appended since.
	Save(ctx context.Context, threadID string, prev, next *ConversationState) error

	// Clear removes everything stored for the thread.
	Clear(ctx context.Context, threadID string) error
}
