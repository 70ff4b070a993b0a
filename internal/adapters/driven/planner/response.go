package planner

import (
	"encoding/json"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

// stripFences removes a surrounding Markdown code fence and any language tag.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// extractJSON returns the JSON document in a collaborator answer. Prose
// around the document is dropped and broken JSON is repaired.
func extractJSON(document, text string) (string, error) {
	text = stripFences(text)
	if start := strings.IndexAny(text, "{["); start > 0 {
		text = text[start:]
	}
	if end := strings.LastIndexAny(text, "}]"); end >= 0 && end < len(text)-1 {
		text = text[:end+1]
	}
	if gjson.Valid(text) {
		return text, nil
	}

	repaired, err := jsonrepair.RepairJSON(text)
	if err != nil || !gjson.Valid(repaired) {
		return "", &SchemaError{Document: document, Details: []string{"response is not JSON"}}
	}
	return repaired, nil
}

// outlineDoc is the collaborator's outline answer.
type outlineDoc struct {
	MainGoal string   `json:"mainGoal"`
	SubGoals []string `json:"subGoals"`
}

// decodeOutline parses and checks an outline answer.
func decodeOutline(text string) (*driven.IntentOutline, error) {
	raw, err := extractJSON(schemaOutline, text)
	if err != nil {
		return nil, err
	}
	if err := validateJSON(schemaOutline, raw); err != nil {
		return nil, err
	}

	var doc outlineDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &SchemaError{Document: schemaOutline, Details: []string{err.Error()}}
	}

	subGoals := doc.SubGoals
	if subGoals == nil {
		subGoals = []string{}
	}
	return &driven.IntentOutline{Objective: doc.MainGoal, SubGoals: subGoals}, nil
}

// flowDoc mirrors domain.Flow with a free-form creation time, which the
// collaborator rarely writes as RFC 3339.
type flowDoc struct {
	ID       string `json:"id"`
	IntentID string `json:"intentId"`
	Metadata struct {
		Author            string  `json:"author"`
		Created           string  `json:"created"`
		EstimatedCost     float64 `json:"estimatedCost"`
		EstimatedDuration string  `json:"estimatedDuration"`
	} `json:"metadata"`
	Resources                  []domain.FlowResource `json:"resources"`
	Steps                      []domain.FlowStep     `json:"steps"`
	Output                     domain.FlowOutput     `json:"output"`
	NaturalLanguageDescription string                `json:"naturalLanguageDescription"`
}

// toFlow converts the document. An unparseable creation time is left zero.
func (d flowDoc) toFlow() domain.Flow {
	flow := domain.Flow{
		ID:       d.ID,
		IntentID: d.IntentID,
		Metadata: domain.FlowMetadata{
			Author:            d.Metadata.Author,
			EstimatedCost:     d.Metadata.EstimatedCost,
			EstimatedDuration: d.Metadata.EstimatedDuration,
		},
		Resources:                  d.Resources,
		Steps:                      d.Steps,
		Output:                     d.Output,
		NaturalLanguageDescription: d.NaturalLanguageDescription,
	}
	if created, err := time.Parse(time.RFC3339Nano, d.Metadata.Created); err == nil {
		flow.Metadata.Created = created.UTC()
	}
	if flow.Resources == nil {
		flow.Resources = []domain.FlowResource{}
	}
	if flow.Steps == nil {
		flow.Steps = []domain.FlowStep{}
	}
	if flow.Output.Combine.Items == nil {
		flow.Output.Combine.Items = []string{}
	}
	return flow
}

// unwrapFlows accepts a bare array, an object with a flows array, or a
// single flow object, and returns the flows as a JSON array.
func unwrapFlows(raw string) (string, error) {
	doc := gjson.Parse(raw)
	switch {
	case doc.IsArray():
		return raw, nil
	case doc.IsObject() && doc.Get("flows").IsArray():
		return doc.Get("flows").Raw, nil
	case doc.IsObject() && doc.Get("steps").Exists():
		return "[" + raw + "]", nil
	default:
		return "", &SchemaError{Document: schemaFlows, Details: []string{"expected an array of flows"}}
	}
}

// decodeFlows parses and checks a flows answer.
func decodeFlows(text string) ([]domain.Flow, error) {
	raw, err := extractJSON(schemaFlows, text)
	if err != nil {
		return nil, err
	}
	raw, err = unwrapFlows(raw)
	if err != nil {
		return nil, err
	}
	if err := validateJSON(schemaFlows, raw); err != nil {
		return nil, err
	}

	var docs []flowDoc
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, &SchemaError{Document: schemaFlows, Details: []string{err.Error()}}
	}

	flows := make([]domain.Flow, len(docs))
	for i, d := range docs {
		flows[i] = d.toFlow()
	}
	return flows, nil
}
