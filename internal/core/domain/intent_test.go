package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIntent() Intent {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return Intent{
		IntentID:  "i1",
		RawIntent: "plan a trip to Paris",
		MainGoal: MainGoal{
			Objective:   "Trip to Paris",
			Constraints: []Constraint{{Type: "budget", Value: 2000.0, Description: "max spend"}},
			Priority:    PriorityMedium,
		},
		SubGoals: []SubGoal{
			{ID: "sg1", Description: "book flights", Status: SubGoalPending},
			{ID: "sg2", Description: "book hotel", DependsOn: []string{"sg1"}, Status: SubGoalPending},
		},
		Status:    IntentDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPriority_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		priority Priority
		expected bool
	}{
		{name: "high", priority: PriorityHigh, expected: true},
		{name: "medium", priority: PriorityMedium, expected: true},
		{name: "low", priority: PriorityLow, expected: true},
		{name: "empty", priority: Priority(""), expected: false},
		{name: "urgent", priority: Priority("urgent"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.priority.IsValid())
		})
	}
}

func TestSubGoalStatus_IsValid(t *testing.T) {
	assert.True(t, SubGoalPending.IsValid())
	assert.True(t, SubGoalInProgress.IsValid())
	assert.True(t, SubGoalCompleted.IsValid())
	assert.True(t, SubGoalFailed.IsValid())
	assert.False(t, SubGoalStatus("done").IsValid())
}

// TestIntentStatus_CanTransitionTo tests the orchestration lifecycle
func TestIntentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     IntentStatus
		to       IntentStatus
		expected bool
	}{
		{name: "draft to draft", from: IntentDraft, to: IntentDraft, expected: true},
		{name: "draft to finalized", from: IntentDraft, to: IntentFinalized, expected: true},
		{name: "draft to completed", from: IntentDraft, to: IntentCompleted, expected: false},
		{name: "finalized to draft", from: IntentFinalized, to: IntentDraft, expected: false},
		{name: "finalized to finalized", from: IntentFinalized, to: IntentFinalized, expected: false},
		{name: "processing to finalized", from: IntentProcessing, to: IntentFinalized, expected: false},
		{name: "failed to draft", from: IntentFailed, to: IntentDraft, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIntentStatus_IsValid(t *testing.T) {
	for _, s := range []IntentStatus{IntentDraft, IntentProcessing, IntentFinalized, IntentCompleted, IntentFailed} {
		assert.True(t, s.IsValid(), s.String())
	}
	assert.False(t, IntentStatus("archived").IsValid())
}

func TestConstraint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{name: "string", value: "EUR", wantErr: false},
		{name: "float", value: 12.5, wantErr: false},
		{name: "int", value: 3, wantErr: false},
		{name: "bool", value: true, wantErr: false},
		{name: "nil", value: nil, wantErr: true},
		{name: "slice", value: []string{"a"}, wantErr: true},
		{name: "map", value: map[string]any{"a": 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Constraint{Type: "x", Value: tt.value}.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIntent_Validate(t *testing.T) {
	var nilIntent *Intent
	assert.ErrorIs(t, nilIntent.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&Intent{}).Validate(), ErrInvalidInput)

	in := sampleIntent()
	assert.NoError(t, in.Validate())
}

func TestIntent_Clone(t *testing.T) {
	original := sampleIntent()
	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.SubGoals[1].DependsOn[0] = "changed"
	clone.SubGoals[0].Description = "changed"
	clone.MainGoal.Constraints[0].Type = "changed"

	assert.Equal(t, "sg1", original.SubGoals[1].DependsOn[0])
	assert.Equal(t, "book flights", original.SubGoals[0].Description)
	assert.Equal(t, "budget", original.MainGoal.Constraints[0].Type)
}

func TestIntentUpdate_Apply(t *testing.T) {
	original := sampleIntent()

	t.Run("empty update changes nothing", func(t *testing.T) {
		assert.Equal(t, original, IntentUpdate{}.Apply(original))
	})

	t.Run("sub-goals replaced wholesale", func(t *testing.T) {
		got := IntentUpdate{SubGoals: []SubGoal{{ID: "only", Status: SubGoalPending}}}.Apply(original)
		require.Len(t, got.SubGoals, 1)
		assert.Equal(t, "only", got.SubGoals[0].ID)
		assert.Equal(t, original.MainGoal, got.MainGoal)
		assert.Len(t, original.SubGoals, 2)
	})

	t.Run("main goal and status", func(t *testing.T) {
		status := IntentFinalized
		goal := MainGoal{Objective: "Trip to Rome", Priority: PriorityHigh}
		got := IntentUpdate{MainGoal: &goal, Status: &status}.Apply(original)
		assert.Equal(t, "Trip to Rome", got.MainGoal.Objective)
		assert.Nil(t, got.MainGoal.Constraints)
		assert.Equal(t, IntentFinalized, got.Status)
		assert.Equal(t, original.RawIntent, got.RawIntent)
		assert.Equal(t, original.IntentID, got.IntentID)
	})
}

func TestNextUpdatedAt(t *testing.T) {
	prev := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, prev.Add(time.Second), NextUpdatedAt(prev, prev.Add(time.Second)))
	assert.Equal(t, prev.Add(time.Nanosecond), NextUpdatedAt(prev, prev))
	assert.Equal(t, prev.Add(time.Nanosecond), NextUpdatedAt(prev, prev.Add(-time.Hour)))
}
