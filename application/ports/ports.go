// Package ports defines the interfaces the application layer depends on.
// Infrastructure adapters implement them; services accept the interfaces
// and return concrete types.
package ports

import (
	"context"

	"conexiones-backend/domain/story"
)

// FragmentRepository is the read/insert contract against the fragment store.
type FragmentRepository interface {
	// FetchRecent returns up to limit fragments ordered by creation time
	// descending (most recent first). Fails with a StoreUnavailable error
	// when the backing store is unreachable or misconfigured.
	FetchRecent(ctx context.Context, limit int) ([]story.Fragment, error)

	// Insert persists a new fragment and returns the created row including
	// the store-assigned id and timestamp. Inputs must be validated before
	// calling; transport failures surface as StoreUnavailable.
	Insert(ctx context.Context, keyword, content string) (story.Fragment, error)

	// Search returns fragments whose keyword matches the term as a
	// case-insensitive substring, falling back to a content match when no
	// keyword matches, most recent first.
	Search(ctx context.Context, term string, limit int) ([]story.Fragment, error)
}

// CompletionClient sends a composed prompt to an external completion
// endpoint and returns the generated text.
type CompletionClient interface {
	// Complete returns the first completion's text for the prompt. model
	// may be empty to use the configured default. Fails with a
	// Configuration error when no credential is set, a Provider error on a
	// non-success response, and an EmptyResponse error when the provider
	// returns no usable text.
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// InsertSubscriber delivers fragments newly inserted into the store, by any
// client. Delivery is at-least-once with no ordering guarantee relative to
// concurrent inserts.
type InsertSubscriber interface {
	// SubscribeInserts registers for insert events. The returned cancel
	// function tears the subscription down; the channel is closed when the
	// subscription ends.
	SubscribeInserts(ctx context.Context) (<-chan story.Fragment, func(), error)
}
