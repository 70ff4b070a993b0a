// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/intentflow/internal/adapters/driven/config/file"
	anthropicllm "github.com/custodia-labs/intentflow/internal/adapters/driven/llm/anthropic"
	openaillm "github.com/custodia-labs/intentflow/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/intentflow/internal/adapters/driven/planner"
	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	LLMService  driven.LLMService
	Planner     driven.Planner     // Nil when no LLM is available.
	PromptStore driven.PromptStore // User-customisable prompt templates.
	Warnings    []string           // Non-fatal issues that left the planner unset.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds the planner from settings. An unconfigured or unreachable LLM
// is reported as a warning and leaves Planner nil, unless required is set,
// in which case it is an error.
func Init(settings *domain.Settings, required bool) (*InitResult, error) {
	result := &InitResult{PromptStore: file.NewPromptStore(settings.PromptDir)}

	if !settings.LLM.IsConfigured() {
		if required {
			return nil, domain.ErrLLMRequired
		}
		result.Warnings = append(result.Warnings, "LLM not configured: planning operations are disabled")
		return result, nil
	}

	llm, err := CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		if required {
			return nil, err
		}
		result.Warnings = append(result.Warnings, err.Error())
		return result, nil
	}

	p, err := planner.NewPlanner(llm, result.PromptStore)
	if err != nil {
		llm.Close()
		return nil, err
	}
	result.LLMService = llm
	result.Planner = p
	return result, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check the llm settings", domain.ErrLLMUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Check the API key and base URL",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:    settings.APIKey,
		BaseURL:   settings.BaseURL,
		Model:     settings.Model,
		MaxTokens: settings.MaxTokens,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:    settings.APIKey,
		BaseURL:   settings.BaseURL,
		Model:     settings.Model,
		MaxTokens: settings.MaxTokens,
	})
}
