package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// FlowResource is an external capability a flow draws on (an API, an engine).
type FlowResource struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"`
	Provider string `json:"provider" yaml:"provider"`

	// Configuration is free-form and never serialised to DIML.
	Configuration map[string]any `json:"configuration,omitempty" yaml:"configuration,omitempty"`
}

// StepAction is the work a step performs against a resource.
type StepAction struct {
	// Resource references a FlowResource ID. It is not checked.
	Resource string `json:"resource" yaml:"resource"`
	Query    string `json:"query" yaml:"query"`

	// Output is the binding name the result is published under.
	Output string `json:"output" yaml:"output"`
}

// FlowStep is one unit of a flow.
type FlowStep struct {
	ID string `json:"id" yaml:"id"`

	// Depends is the ID of a prerequisite step, or empty. It is not checked.
	Depends string     `json:"depends" yaml:"depends"`
	Action  StepAction `json:"action" yaml:"action"`
}

// FlowMetadata describes authorship and estimates for a flow.
type FlowMetadata struct {
	Author            string    `json:"author" yaml:"author"`
	Created           time.Time `json:"created" yaml:"created"`
	EstimatedCost     float64   `json:"estimatedCost" yaml:"estimatedCost"`
	EstimatedDuration string    `json:"estimatedDuration" yaml:"estimatedDuration"`
}

// Combine lists the output bindings merged into the flow result.
type Combine struct {
	Items []string `json:"items" yaml:"items"`
}

// FlowOutput is the combination rule of a flow.
type FlowOutput struct {
	Combine Combine `json:"combine" yaml:"combine"`
}

// Flow is a concrete, executable plan intended to satisfy an Intent.
type Flow struct {
	ID string `json:"id" yaml:"id"`

	// IntentID is a soft reference; stores do not check the intent exists.
	IntentID  string         `json:"intentId" yaml:"intentId"`
	Metadata  FlowMetadata   `json:"metadata" yaml:"metadata"`
	Resources []FlowResource `json:"resources" yaml:"resources"`
	Steps     []FlowStep     `json:"steps" yaml:"steps"`
	Output    FlowOutput     `json:"output" yaml:"output"`

	// NaturalLanguageDescription is store-only; DIML cannot carry it.
	NaturalLanguageDescription string `json:"naturalLanguageDescription" yaml:"naturalLanguageDescription"`
}

// Validate checks the identity fields required before a flow is stored.
func (f *Flow) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: flow is nil", ErrInvalidInput)
	}
	if f.ID == "" {
		return fmt.Errorf("%w: flow id is required", ErrInvalidInput)
	}
	if f.IntentID == "" {
		return fmt.Errorf("%w: flow %s has no intent id", ErrInvalidInput, f.ID)
	}
	return nil
}

// Clone returns a copy that shares no slices or maps with f.
// Configuration values themselves are copied shallowly.
func (f Flow) Clone() Flow {
	out := f
	out.Resources = cloneResources(f.Resources)
	out.Steps = slices.Clone(f.Steps)
	out.Output.Combine.Items = slices.Clone(f.Output.Combine.Items)
	return out
}

func cloneResources(in []FlowResource) []FlowResource {
	if in == nil {
		return nil
	}
	out := make([]FlowResource, len(in))
	for i, r := range in {
		r.Configuration = maps.Clone(r.Configuration)
		out[i] = r
	}
	return out
}

// FlowUpdate is a partial, field-level update of a Flow.
// Nil fields are left untouched. ID and IntentID cannot be changed, so an
// update never moves a flow between intents.
type FlowUpdate struct {
	Metadata                   *FlowMetadata
	Resources                  []FlowResource
	Steps                      []FlowStep
	Output                     *FlowOutput
	NaturalLanguageDescription *string
}

// Apply returns f with the update merged in.
func (u FlowUpdate) Apply(f Flow) Flow {
	out := f.Clone()
	if u.Metadata != nil {
		out.Metadata = *u.Metadata
	}
	if u.Resources != nil {
		out.Resources = cloneResources(u.Resources)
	}
	if u.Steps != nil {
		out.Steps = slices.Clone(u.Steps)
	}
	if u.Output != nil {
		out.Output = *u.Output
		out.Output.Combine.Items = slices.Clone(u.Output.Combine.Items)
	}
	if u.NaturalLanguageDescription != nil {
		out.NaturalLanguageDescription = *u.NaturalLanguageDescription
	}
	return out
}
