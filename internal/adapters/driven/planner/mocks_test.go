package planner

import (
	"context"
	"fmt"

	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

// fakeLLM returns a canned answer and records the last request.
type fakeLLM struct {
	answer string
	err    error

	prompt string
	opts   driven.GenerateOptions
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	f.prompt = prompt
	f.opts = opts
	return f.answer, f.err
}

func (f *fakeLLM) ModelName() string            { return "fake" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

// mapPrompts serves prompts from a map.
type mapPrompts map[string]string

func (m mapPrompts) Load(name string) (string, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown prompt %q", name)
}

func (m mapPrompts) Reload() {}

func testPrompts() mapPrompts {
	return mapPrompts{
		driven.PromptSystem:  "system prompt",
		driven.PromptOutline: "outline: %s",
		driven.PromptFlows:   "flows: %s",
		driven.PromptDIML:    "diml: %s",
	}
}
