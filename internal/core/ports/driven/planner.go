package driven

import (
	"context"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

// IntentOutline is the collaborator's decomposition of a raw intent.
type IntentOutline struct {
	// Objective is the main goal in one sentence.
	Objective string

	// SubGoals are ordered sub-goal descriptions.
	SubGoals []string
}

// Planner is the text-generation collaborator. Its answers are untrusted;
// callers validate them before storing anything.
type Planner interface {
	// Outline derives the main objective and sub-goals of a raw intent.
	Outline(ctx context.Context, rawIntent string) (*IntentOutline, error)

	// GenerateFlows proposes candidate flows for a raw intent.
	GenerateFlows(ctx context.Context, rawIntent string) ([]domain.Flow, error)

	// RenderDIML asks the collaborator to render a flow as DIML text.
	RenderDIML(ctx context.Context, flow *domain.Flow) (string, error)
}
