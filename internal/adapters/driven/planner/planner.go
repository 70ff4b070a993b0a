// Package planner implements driven.Planner on top of an LLM service.
//
// Answers are treated as untrusted text: code fences are stripped, broken
// JSON is repaired, and the result is checked against embedded JSON
// Schemas before anything is returned to the core.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
	"github.com/custodia-labs/intentflow/internal/logger"
)

// Ensure Planner implements the interface.
var _ driven.Planner = (*Planner)(nil)

// Sampling temperatures per request kind.
const (
	outlineTemperature = 0.2
	flowsTemperature   = 0.4
	dimlTemperature    = 0.0
)

// Planner asks an LLM for outlines, flows and DIML renderings.
type Planner struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewPlanner creates a planner. Both collaborators are required.
func NewPlanner(llm driven.LLMService, prompts driven.PromptStore) (*Planner, error) {
	if llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if prompts == nil {
		return nil, fmt.Errorf("planner: prompt store is required")
	}
	return &Planner{llm: llm, prompts: prompts}, nil
}

// Outline derives the main objective and sub-goals of a raw intent.
func (p *Planner) Outline(ctx context.Context, rawIntent string) (*driven.IntentOutline, error) {
	text, err := p.ask(ctx, driven.PromptOutline, rawIntent, outlineTemperature)
	if err != nil {
		return nil, fmt.Errorf("outline: %w", err)
	}
	outline, err := decodeOutline(text)
	if err != nil {
		return nil, fmt.Errorf("outline: %w", err)
	}
	return outline, nil
}

// GenerateFlows proposes candidate flows for a raw intent.
func (p *Planner) GenerateFlows(ctx context.Context, rawIntent string) ([]domain.Flow, error) {
	text, err := p.ask(ctx, driven.PromptFlows, rawIntent, flowsTemperature)
	if err != nil {
		return nil, fmt.Errorf("flows: %w", err)
	}
	flows, err := decodeFlows(text)
	if err != nil {
		return nil, fmt.Errorf("flows: %w", err)
	}
	return flows, nil
}

// RenderDIML asks the LLM to render a flow as DIML. The text is returned
// without fences but otherwise unchecked.
func (p *Planner) RenderDIML(ctx context.Context, flow *domain.Flow) (string, error) {
	if flow == nil {
		return "", fmt.Errorf("render DIML: %w: nil flow", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(flow)
	if err != nil {
		return "", fmt.Errorf("render DIML: marshal flow: %w", err)
	}

	text, err := p.ask(ctx, driven.PromptDIML, string(data), dimlTemperature)
	if err != nil {
		return "", fmt.Errorf("render DIML: %w", err)
	}
	return stripFences(text), nil
}

// ask fills the named prompt with arg and sends it with the system prompt.
func (p *Planner) ask(ctx context.Context, name, arg string, temperature float64) (string, error) {
	system, err := p.prompts.Load(driven.PromptSystem)
	if err != nil {
		return "", err
	}
	tmpl, err := p.prompts.Load(name)
	if err != nil {
		return "", err
	}

	prompt := strings.Replace(tmpl, "%s", arg, 1)
	text, err := p.llm.Generate(ctx, prompt, driven.GenerateOptions{
		System:      system,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	logger.Debug("planner answered",
		logger.Op(name),
		"model", p.llm.ModelName(),
		"bytes", len(text),
	)
	return text, nil
}
