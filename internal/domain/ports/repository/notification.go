package repository

import (
	"context"

	"github.com/google/uuid"

	"shipboard-community/internal/domain/model"
)

// NotificationStore is the counter layer on the external key-value store.
// All mutating operations are expressed as store-side atomic primitives; the
// caller never does read-modify-write on a counter.
//
// The store holds derived display data, not authorization truth: callers are
// expected to degrade (zero summary, skipped increment plus a warning) when it
// is unreachable rather than fail their request.
type NotificationStore interface {
	// Increment adds delta (>0) to the category's current counter, creating
	// the field at zero first when absent.
	Increment(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID, delta int64) error

	// Decrement subtracts delta from the current counter, flooring at zero.
	Decrement(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID, delta int64) error

	// MarkViewed copies the current counter into the viewed counter as of the
	// call (snapshot-and-copy, not a continuous sync).
	MarkViewed(ctx context.Context, cat model.NotificationCategory, userID uuid.UUID) error

	// Summarize reads every requested category's current and viewed counters
	// in a single round trip.
	Summarize(ctx context.Context, userID uuid.UUID, cats []model.NotificationCategory) (model.NotificationSummary, error)

	// ClearConversation deletes a conversation's current and viewed fields,
	// used when a user leaves the conversation.
	ClearConversation(ctx context.Context, cat model.ConversationCategory, userID uuid.UUID) error

	// Alert-word watcher bookkeeping: a sorted set counts watchers per word so
	// emission can gate on "anyone watching?" without scanning users, and a
	// set per word holds the watching user IDs.
	AddWordWatcher(ctx context.Context, word string, userID uuid.UUID) error
	RemoveWordWatcher(ctx context.Context, word string, userID uuid.UUID) error
	WordWatchers(ctx context.Context, word string) ([]uuid.UUID, error)
	IsWatchedWord(ctx context.Context, word string) (bool, error)
}
