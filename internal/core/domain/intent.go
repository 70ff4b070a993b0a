package domain

import (
	"fmt"
	"slices"
	"time"
)

// Priority ranks how urgent a main goal is.
type Priority string

// Available priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid returns true if the priority is recognised.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// SubGoalStatus tracks progress of a single sub-goal.
type SubGoalStatus string

// Available sub-goal statuses.
const (
	SubGoalPending    SubGoalStatus = "pending"
	SubGoalInProgress SubGoalStatus = "in_progress"
	SubGoalCompleted  SubGoalStatus = "completed"
	SubGoalFailed     SubGoalStatus = "failed"
)

// IsValid returns true if the sub-goal status is recognised.
func (s SubGoalStatus) IsValid() bool {
	switch s {
	case SubGoalPending, SubGoalInProgress, SubGoalCompleted, SubGoalFailed:
		return true
	default:
		return false
	}
}

// IntentStatus is the lifecycle state of an Intent.
type IntentStatus string

// Available intent statuses.
const (
	IntentDraft      IntentStatus = "draft"
	IntentProcessing IntentStatus = "processing"
	IntentFinalized  IntentStatus = "finalized"
	IntentCompleted  IntentStatus = "completed"
	IntentFailed     IntentStatus = "failed"
)

// IsValid returns true if the intent status is recognised.
func (s IntentStatus) IsValid() bool {
	switch s {
	case IntentDraft, IntentProcessing, IntentFinalized, IntentCompleted, IntentFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the orchestration lifecycle permits moving
// from s to next. Only draft→draft (refine) and draft→finalized (finalize)
// exist; nothing leaves finalized.
func (s IntentStatus) CanTransitionTo(next IntentStatus) bool {
	if s != IntentDraft {
		return false
	}
	return next == IntentDraft || next == IntentFinalized
}

// String returns the string representation.
func (s IntentStatus) String() string {
	return string(s)
}

// Constraint is a descriptive restriction attached to a goal.
// Value holds a string, a number or a boolean; nothing enforces it.
type Constraint struct {
	Type        string `json:"type" yaml:"type"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// Validate checks that Value carries one of the supported scalar kinds.
func (c Constraint) Validate() error {
	switch c.Value.(type) {
	case string, bool, float64, float32, int, int32, int64:
		return nil
	default:
		return fmt.Errorf("%w: constraint %q has unsupported value type %T", ErrInvalidInput, c.Type, c.Value)
	}
}

// MainGoal is the primary objective extracted from a raw intent.
type MainGoal struct {
	Objective   string       `json:"objective" yaml:"objective"`
	Constraints []Constraint `json:"constraints" yaml:"constraints"`
	Priority    Priority     `json:"priority" yaml:"priority"`
}

// SubGoal is one step of the decomposition of an intent.
type SubGoal struct {
	// ID is unique within the owning Intent.
	ID          string        `json:"id" yaml:"id"`
	Description string        `json:"description" yaml:"description"`
	DependsOn   []string      `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Status      SubGoalStatus `json:"status" yaml:"status"`
}

// Intent is a user's goal captured as raw text plus its decomposition.
type Intent struct {
	// IntentID is globally unique and assigned at creation.
	IntentID string `json:"intentId" yaml:"intentId"`

	// RawIntent is the text the intent was created from. It never changes.
	RawIntent string `json:"rawIntent" yaml:"rawIntent"`

	MainGoal  MainGoal     `json:"mainGoal" yaml:"mainGoal"`
	SubGoals  []SubGoal    `json:"subGoals" yaml:"subGoals"`
	Status    IntentStatus `json:"status" yaml:"status"`
	CreatedAt time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt" yaml:"updatedAt"`
}

// Validate checks the identity fields required before an intent is stored.
func (i *Intent) Validate() error {
	if i == nil {
		return fmt.Errorf("%w: intent is nil", ErrInvalidInput)
	}
	if i.IntentID == "" {
		return fmt.Errorf("%w: intent id is required", ErrInvalidInput)
	}
	return nil
}

// Clone returns a copy that shares no slices with i.
func (i Intent) Clone() Intent {
	out := i
	out.MainGoal.Constraints = slices.Clone(i.MainGoal.Constraints)
	if i.SubGoals != nil {
		out.SubGoals = make([]SubGoal, len(i.SubGoals))
		for idx, sg := range i.SubGoals {
			sg.DependsOn = slices.Clone(sg.DependsOn)
			out.SubGoals[idx] = sg
		}
	}
	return out
}

// IntentUpdate is a partial, field-level update of an Intent.
// Nil fields are left untouched; non-nil fields replace the stored value
// wholesale. Identity and RawIntent cannot be changed.
type IntentUpdate struct {
	MainGoal *MainGoal
	SubGoals []SubGoal
	Status   *IntentStatus
}

// Apply returns i with the update merged in. UpdatedAt is not touched;
// stores stamp it.
func (u IntentUpdate) Apply(i Intent) Intent {
	out := i.Clone()
	if u.MainGoal != nil {
		out.MainGoal = *u.MainGoal
		out.MainGoal.Constraints = slices.Clone(u.MainGoal.Constraints)
	}
	if u.SubGoals != nil {
		out.SubGoals = Intent{SubGoals: u.SubGoals}.Clone().SubGoals
	}
	if u.Status != nil {
		out.Status = *u.Status
	}
	return out
}

// NextUpdatedAt returns now, or one nanosecond after prev when the clock has
// not moved past it. UpdatedAt is strictly increasing per intent.
func NextUpdatedAt(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}
