// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Store: intent and flow persistence with the intent → flow index
//   - ConfigStore: settings file access
//
// # Optional Interfaces
//
// These can be nil; operations that need them fail with domain.ErrLLMUnavailable:
//
//   - Planner: text-generation collaborator
//   - LLMService: language model backing the planner
//   - PromptStore: planner prompt templates (embedded defaults otherwise)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
