package cli

import (
	"context"
	"testing"

	"github.com/custodia-labs/intentflow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
	"github.com/custodia-labs/intentflow/internal/core/services"
)

// stubPlanner is a canned driven.Planner.
type stubPlanner struct{}

func (stubPlanner) Outline(_ context.Context, _ string) (*driven.IntentOutline, error) {
	return &driven.IntentOutline{Objective: "Weekend in Lisbon", SubGoals: []string{"find hotel"}}, nil
}

func (stubPlanner) GenerateFlows(_ context.Context, _ string) ([]domain.Flow, error) {
	return []domain.Flow{{
		ID:        "lisbon-1",
		Resources: []domain.FlowResource{{ID: "r1", Type: "HotelAPI", Provider: "acme"}},
		Steps:     []domain.FlowStep{{ID: "s1", Action: domain.StepAction{Resource: "r1", Query: "hotels", Output: "hotels"}}},
		Output:    domain.FlowOutput{Combine: domain.Combine{Items: []string{"hotels"}}},
	}}, nil
}

func (stubPlanner) RenderDIML(_ context.Context, _ *domain.Flow) (string, error) {
	return "", domain.ErrLLMUnavailable
}

// useTestApp replaces newApp with an in-memory application for the test.
func useTestApp(t *testing.T, planner driven.Planner) *[]bool {
	t.Helper()
	var required []bool
	original := newApp
	newApp = func(_ context.Context, requireLLM bool) (*app, error) {
		required = append(required, requireLLM)
		settings := domain.DefaultSettings()
		return &app{
			settings: &settings,
			intents:  services.NewIntentService(memory.NewStore(), planner),
		}, nil
	}
	t.Cleanup(func() { newApp = original })
	return &required
}
