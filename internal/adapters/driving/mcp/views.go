package mcp

import (
	"time"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

// Tool results carry timestamps as RFC 3339 strings so the inferred output
// schemas stay plain JSON types.

// IntentView is an intent as returned by the tools.
type IntentView struct {
	IntentID  string           `json:"intentId"`
	RawIntent string           `json:"rawIntent"`
	MainGoal  domain.MainGoal  `json:"mainGoal"`
	SubGoals  []domain.SubGoal `json:"subGoals"`
	Status    string           `json:"status"`
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
}

// FlowMetadataView is flow metadata as returned by the tools.
type FlowMetadataView struct {
	Author            string  `json:"author"`
	Created           string  `json:"created"`
	EstimatedCost     float64 `json:"estimatedCost"`
	EstimatedDuration string  `json:"estimatedDuration"`
}

// FlowView is a flow as returned by the tools.
type FlowView struct {
	ID                         string                `json:"id"`
	IntentID                   string                `json:"intentId"`
	Metadata                   FlowMetadataView      `json:"metadata"`
	Resources                  []domain.FlowResource `json:"resources"`
	Steps                      []domain.FlowStep     `json:"steps"`
	Output                     domain.FlowOutput     `json:"output"`
	NaturalLanguageDescription string                `json:"naturalLanguageDescription"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func intentView(i *domain.Intent) IntentView {
	return IntentView{
		IntentID:  i.IntentID,
		RawIntent: i.RawIntent,
		MainGoal:  i.MainGoal,
		SubGoals:  i.SubGoals,
		Status:    i.Status.String(),
		CreatedAt: formatTime(i.CreatedAt),
		UpdatedAt: formatTime(i.UpdatedAt),
	}
}

func flowView(f *domain.Flow) FlowView {
	return FlowView{
		ID:       f.ID,
		IntentID: f.IntentID,
		Metadata: FlowMetadataView{
			Author:            f.Metadata.Author,
			Created:           formatTime(f.Metadata.Created),
			EstimatedCost:     f.Metadata.EstimatedCost,
			EstimatedDuration: f.Metadata.EstimatedDuration,
		},
		Resources:                  f.Resources,
		Steps:                      f.Steps,
		Output:                     f.Output,
		NaturalLanguageDescription: f.NaturalLanguageDescription,
	}
}

func flowViews(flows []domain.Flow) []FlowView {
	out := make([]FlowView, len(flows))
	for i := range flows {
		out[i] = flowView(&flows[i])
	}
	return out
}
