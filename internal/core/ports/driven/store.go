package driven

import (
	"context"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

// IntentStore persists intents.
type IntentStore interface {
	// SaveIntent inserts or replaces an intent by IntentID.
	SaveIntent(ctx context.Context, intent *domain.Intent) error

	// GetIntent retrieves an intent by ID.
	// Returns domain.ErrNotFound when absent.
	GetIntent(ctx context.Context, id string) (*domain.Intent, error)

	// UpdateIntent shallow-merges update into the stored intent and stamps
	// UpdatedAt strictly later than its previous value.
	// Returns domain.ErrNotFound when absent.
	UpdateIntent(ctx context.Context, id string, update domain.IntentUpdate) (*domain.Intent, error)

	// DeleteIntent removes an intent and every flow indexed under it.
	// Deleting a missing intent is a no-op.
	DeleteIntent(ctx context.Context, id string) error
}

// FlowStore persists flows and the intent → flow index.
type FlowStore interface {
	// SaveFlow inserts or replaces a flow by ID and links it under
	// flow.IntentID. The index keeps insertion order without duplicates.
	SaveFlow(ctx context.Context, flow *domain.Flow) error

	// GetFlow retrieves a flow by ID.
	// Returns domain.ErrNotFound when absent.
	GetFlow(ctx context.Context, id string) (*domain.Flow, error)

	// GetFlowsByIntentID returns the flows indexed under an intent in
	// insertion order. Unknown intents yield an empty, non-nil slice.
	GetFlowsByIntentID(ctx context.Context, intentID string) ([]domain.Flow, error)

	// UpdateFlow shallow-merges update into the stored flow.
	// The index is untouched. Returns domain.ErrNotFound when absent.
	UpdateFlow(ctx context.Context, id string, update domain.FlowUpdate) (*domain.Flow, error)

	// DeleteFlow removes a flow and unlinks it from its intent.
	// Deleting a missing flow is a no-op.
	DeleteFlow(ctx context.Context, id string) error
}

// Store is the full keyed store for intents and flows.
// Each call is atomic; no lock spans more than one call.
type Store interface {
	IntentStore
	FlowStore

	// Close releases resources.
	Close() error
}
