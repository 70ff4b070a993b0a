package driving

import (
	"context"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/diml"
)

// IntentService turns raw intents into stored intents and flows.
type IntentService interface {
	// CreateIntent decomposes raw text into a draft intent and stores it.
	CreateIntent(ctx context.Context, rawIntent string) (*domain.Intent, error)

	// GetIntent retrieves an intent by ID.
	GetIntent(ctx context.Context, id string) (*domain.Intent, error)

	// RefineIntent merges an update into a draft intent.
	// The result stays in draft.
	RefineIntent(ctx context.Context, id string, update domain.IntentUpdate) (*domain.Intent, error)

	// FinalizeIntent moves a draft intent to finalized.
	FinalizeIntent(ctx context.Context, id string) (*domain.Intent, error)

	// DeleteIntent removes an intent and its flows.
	DeleteIntent(ctx context.Context, id string) error

	// GenerateFlows asks the planner for flows and stores all of them or none.
	GenerateFlows(ctx context.Context, intentID string) ([]domain.Flow, error)

	// GetFlow retrieves a flow by ID.
	GetFlow(ctx context.Context, id string) (*domain.Flow, error)

	// ListFlows returns the flows of an intent in generation order.
	ListFlows(ctx context.Context, intentID string) ([]domain.Flow, error)

	// DeleteFlow removes a flow.
	DeleteFlow(ctx context.Context, id string) error

	// DescribeFlow returns the natural-language description of a flow.
	DescribeFlow(ctx context.Context, id string) (string, error)

	// ExportDIML returns a stored flow as formatted DIML.
	ExportDIML(ctx context.Context, id string) (string, error)

	// GenerateDIML asks the planner to render a stored flow as DIML.
	GenerateDIML(ctx context.Context, id string) (string, error)

	// ImportDIML decodes DIML and stores the resulting flow.
	ImportDIML(ctx context.Context, text string) (*domain.Flow, error)

	// ValidateDIML reports the structural problems of a DIML document.
	ValidateDIML(text string) diml.ValidationResult
}
