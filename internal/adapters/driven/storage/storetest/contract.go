// Package storetest holds the behavioural contract every driven.Store
// adapter must satisfy.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

// Factory returns a fresh, empty store. The contract closes it.
type Factory func(t *testing.T) driven.Store

// NewIntent returns a draft intent with two sub-goals.
func NewIntent(id string) *domain.Intent {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Intent{
		IntentID:  id,
		RawIntent: "plan a trip to Paris",
		MainGoal: domain.MainGoal{
			Objective:   "Trip to Paris",
			Constraints: []domain.Constraint{{Type: "budget", Value: "2000 EUR", Description: "max spend"}},
			Priority:    domain.PriorityMedium,
		},
		SubGoals: []domain.SubGoal{
			{ID: id + "-sg1", Description: "book flights", Status: domain.SubGoalPending},
			{ID: id + "-sg2", Description: "book hotel", DependsOn: []string{id + "-sg1"}, Status: domain.SubGoalPending},
		},
		Status:    domain.IntentDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewFlow returns a one-step flow under intentID.
func NewFlow(id, intentID string) *domain.Flow {
	return &domain.Flow{
		ID:       id,
		IntentID: intentID,
		Metadata: domain.FlowMetadata{
			Author:            "planner",
			Created:           time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			EstimatedCost:     100,
			EstimatedDuration: "2 hours",
		},
		Resources: []domain.FlowResource{
			{ID: "r1", Type: "FlightAPI", Provider: "amadeus", Configuration: map[string]any{"region": "eu"}},
		},
		Steps: []domain.FlowStep{
			{ID: "s1", Action: domain.StepAction{Resource: "r1", Query: "find flights", Output: "flights"}},
		},
		Output:                     domain.FlowOutput{Combine: domain.Combine{Items: []string{"flights"}}},
		NaturalLanguageDescription: "Find flights to Paris",
	}
}

// Run executes the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s driven.Store)
	}{
		{"IntentRoundTrip", testIntentRoundTrip},
		{"IntentNotFound", testIntentNotFound},
		{"SaveRejectsEmptyIDs", testSaveRejectsEmptyIDs},
		{"SaveIntentUpserts", testSaveIntentUpserts},
		{"UpdateIntentMerges", testUpdateIntentMerges},
		{"UpdateIntentAdvancesUpdatedAt", testUpdateIntentAdvancesUpdatedAt},
		{"ValuesAreCopied", testValuesAreCopied},
		{"FlowRoundTrip", testFlowRoundTrip},
		{"FlowNotFound", testFlowNotFound},
		{"FlowsByIntentInsertionOrder", testFlowsByIntentInsertionOrder},
		{"SaveFlowTwiceKeepsOneEntry", testSaveFlowTwiceKeepsOneEntry},
		{"UpdateFlowMerges", testUpdateFlowMerges},
		{"DeleteFlowUnlinks", testDeleteFlowUnlinks},
		{"DeleteIntentCascades", testDeleteIntentCascades},
		{"DeleteIntentWithoutRecordCascades", testDeleteIntentWithoutRecordCascades},
		{"ResaveUnderNewIntentLeavesStaleEntry", testResaveUnderNewIntentLeavesStaleEntry},
		{"ConcurrentSaves", testConcurrentSaves},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer func() { assert.NoError(t, s.Close()) }()
			tt.fn(t, s)
		})
	}
}

func testIntentRoundTrip(t *testing.T, s driven.Store) {
	ctx := context.Background()
	in := NewIntent("i1")
	require.NoError(t, s.SaveIntent(ctx, in))

	got, err := s.GetIntent(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, in.IntentID, got.IntentID)
	assert.Equal(t, in.RawIntent, got.RawIntent)
	assert.Equal(t, in.MainGoal, got.MainGoal)
	assert.Equal(t, in.SubGoals, got.SubGoals)
	assert.Equal(t, in.Status, got.Status)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, in.UpdatedAt.Equal(got.UpdatedAt))
}

func testIntentNotFound(t *testing.T, s driven.Store) {
	ctx := context.Background()

	_, err := s.GetIntent(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.UpdateIntent(ctx, "missing", domain.IntentUpdate{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, s.DeleteIntent(ctx, "missing"))
}

func testSaveRejectsEmptyIDs(t *testing.T, s driven.Store) {
	ctx := context.Background()

	assert.ErrorIs(t, s.SaveIntent(ctx, NewIntent("")), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.SaveFlow(ctx, NewFlow("", "i1")), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.SaveFlow(ctx, NewFlow("f1", "")), domain.ErrInvalidInput)

	flows, err := s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func testSaveIntentUpserts(t *testing.T, s driven.Store) {
	ctx := context.Background()
	in := NewIntent("i1")
	require.NoError(t, s.SaveIntent(ctx, in))

	in.MainGoal.Objective = "Trip to Rome"
	in.SubGoals = nil
	require.NoError(t, s.SaveIntent(ctx, in))

	got, err := s.GetIntent(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Trip to Rome", got.MainGoal.Objective)
	assert.Empty(t, got.SubGoals)
}

func testUpdateIntentMerges(t *testing.T, s driven.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveIntent(ctx, NewIntent("i1")))

	status := domain.IntentFinalized
	goal := domain.MainGoal{Objective: "Trip to Paris", Priority: domain.PriorityHigh}
	got, err := s.UpdateIntent(ctx, "i1", domain.IntentUpdate{Status: &status, MainGoal: &goal})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentFinalized, got.Status)
	assert.Equal(t, domain.PriorityHigh, got.MainGoal.Priority)
	assert.Len(t, got.SubGoals, 2)
	assert.Equal(t, "plan a trip to Paris", got.RawIntent)

	stored, err := s.GetIntent(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, got.Status, stored.Status)
	assert.Equal(t, got.MainGoal, stored.MainGoal)
}

func testUpdateIntentAdvancesUpdatedAt(t *testing.T, s driven.Store) {
	ctx := context.Background()
	in := NewIntent("i1")
	// A future timestamp forces the store to advance past it rather than use the clock.
	in.UpdatedAt = time.Now().Add(time.Hour).UTC()
	require.NoError(t, s.SaveIntent(ctx, in))

	prev := in.UpdatedAt
	for i := 0; i < 3; i++ {
		got, err := s.UpdateIntent(ctx, "i1", domain.IntentUpdate{})
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(prev), "update %d did not advance UpdatedAt", i)
		assert.True(t, got.CreatedAt.Equal(in.CreatedAt))
		prev = got.UpdatedAt
	}
}

func testValuesAreCopied(t *testing.T, s driven.Store) {
	ctx := context.Background()
	in := NewIntent("i1")
	require.NoError(t, s.SaveIntent(ctx, in))
	in.SubGoals[0].Description = "mutated after save"

	got, err := s.GetIntent(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "book flights", got.SubGoals[0].Description)
	got.SubGoals[0].Description = "mutated after get"

	again, err := s.GetIntent(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "book flights", again.SubGoals[0].Description)

	flow := NewFlow("f1", "i1")
	require.NoError(t, s.SaveFlow(ctx, flow))
	flow.Steps[0].Action.Query = "mutated"

	gotFlow, err := s.GetFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "find flights", gotFlow.Steps[0].Action.Query)
}

func testFlowRoundTrip(t *testing.T, s driven.Store) {
	ctx := context.Background()
	flow := NewFlow("f1", "i1")
	require.NoError(t, s.SaveFlow(ctx, flow))

	got, err := s.GetFlow(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, flow.ID, got.ID)
	assert.Equal(t, flow.IntentID, got.IntentID)
	assert.Equal(t, flow.Steps, got.Steps)
	assert.Equal(t, flow.Output, got.Output)
	assert.Equal(t, flow.NaturalLanguageDescription, got.NaturalLanguageDescription)
	assert.Equal(t, flow.Metadata.Author, got.Metadata.Author)
	assert.Equal(t, flow.Metadata.EstimatedCost, got.Metadata.EstimatedCost)
	assert.True(t, flow.Metadata.Created.Equal(got.Metadata.Created))
	require.Len(t, got.Resources, 1)
	assert.Equal(t, "amadeus", got.Resources[0].Provider)
	assert.Equal(t, "eu", got.Resources[0].Configuration["region"])
}

func testFlowNotFound(t *testing.T, s driven.Store) {
	ctx := context.Background()

	_, err := s.GetFlow(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.UpdateFlow(ctx, "missing", domain.FlowUpdate{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, s.DeleteFlow(ctx, "missing"))

	flows, err := s.GetFlowsByIntentID(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, flows)
	assert.Empty(t, flows)
}

func testFlowsByIntentInsertionOrder(t *testing.T, s driven.Store) {
	ctx := context.Background()
	ids := []string{"f3", "f1", "f2"}
	for _, id := range ids {
		require.NoError(t, s.SaveFlow(ctx, NewFlow(id, "i1")))
	}
	require.NoError(t, s.SaveFlow(ctx, NewFlow("other", "i2")))

	flows, err := s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, flows, 3)
	for i, id := range ids {
		assert.Equal(t, id, flows[i].ID)
	}
}

func testSaveFlowTwiceKeepsOneEntry(t *testing.T, s driven.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f1", "i1")))
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f2", "i1")))

	again := NewFlow("f1", "i1")
	again.Metadata.Author = "second"
	require.NoError(t, s.SaveFlow(ctx, again))

	flows, err := s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "f1", flows[0].ID)
	assert.Equal(t, "second", flows[0].Metadata.Author)
	assert.Equal(t, "f2", flows[1].ID)
}

func testUpdateFlowMerges(t *testing.T, s driven.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f1", "i1")))

	desc := "Updated description"
	meta := domain.FlowMetadata{Author: "editor", EstimatedCost: 200}
	got, err := s.UpdateFlow(ctx, "f1", domain.FlowUpdate{Metadata: &meta, NaturalLanguageDescription: &desc})
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.Metadata.EstimatedCost)
	assert.Equal(t, "editor", got.Metadata.Author)
	assert.Equal(t, desc, got.NaturalLanguageDescription)
	assert.Len(t, got.Steps, 1)
	assert.Equal(t, "i1", got.IntentID)

	flows, err := s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, desc, flows[0].NaturalLanguageDescription)
}

func testDeleteFlowUnlinks(t *testing.T, s driven.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f1", "i1")))
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f2", "i1")))

	require.NoError(t, s.DeleteFlow(ctx, "f1"))
	_, err := s.GetFlow(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	flows, err := s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "f2", flows[0].ID)

	require.NoError(t, s.DeleteFlow(ctx, "f2"))
	flows, err = s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	assert.Empty(t, flows)

	// The emptied entry is gone, so a new flow starts a fresh list.
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f3", "i1")))
	flows, err = s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "f3", flows[0].ID)
}

func testDeleteIntentCascades(t *testing.T, s driven.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveIntent(ctx, NewIntent("i1")))
	require.NoError(t, s.SaveIntent(ctx, NewIntent("i2")))
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f1", "i1")))
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f2", "i1")))
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f3", "i2")))

	require.NoError(t, s.DeleteIntent(ctx, "i1"))

	_, err := s.GetIntent(ctx, "i1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	for _, id := range []string{"f1", "f2"} {
		_, err := s.GetFlow(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
	}
	flows, err := s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	assert.Empty(t, flows)

	_, err = s.GetFlow(ctx, "f3")
	assert.NoError(t, err)
	_, err = s.GetIntent(ctx, "i2")
	assert.NoError(t, err)
}

func testDeleteIntentWithoutRecordCascades(t *testing.T, s driven.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f1", "orphan")))

	require.NoError(t, s.DeleteIntent(ctx, "orphan"))
	_, err := s.GetFlow(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testResaveUnderNewIntentLeavesStaleEntry(t *testing.T, s driven.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f1", "i1")))
	require.NoError(t, s.SaveFlow(ctx, NewFlow("f1", "i2")))

	underNew, err := s.GetFlowsByIntentID(ctx, "i2")
	require.NoError(t, err)
	require.Len(t, underNew, 1)
	assert.Equal(t, "i2", underNew[0].IntentID)

	underOld, err := s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, underOld, 1)
	assert.Equal(t, "f1", underOld[0].ID)
	assert.Equal(t, "i2", underOld[0].IntentID)

	// Deleting unlinks from the current intent only; the stale entry
	// no longer resolves to a flow.
	require.NoError(t, s.DeleteFlow(ctx, "f1"))
	underOld, err = s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	assert.Empty(t, underOld)
}

func testConcurrentSaves(t *testing.T, s driven.Store) {
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SaveFlow(ctx, NewFlow(fmt.Sprintf("f%02d", i), "i1")))
		}(i)
	}
	wg.Wait()

	flows, err := s.GetFlowsByIntentID(ctx, "i1")
	require.NoError(t, err)
	assert.Len(t, flows, n)
}
