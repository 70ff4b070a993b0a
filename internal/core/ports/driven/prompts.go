package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used by the planner.
const (
	// PromptSystem is the system prompt shared by every planner call.
	// It has no format placeholders.
	PromptSystem = "system"

	// PromptOutline decomposes a raw intent into objective and sub-goals.
	// The template expects a %s placeholder for the raw intent.
	PromptOutline = "outline"

	// PromptFlows proposes flows for a raw intent.
	// The template expects a %s placeholder for the raw intent.
	PromptFlows = "flows"

	// PromptDIML renders a flow as DIML.
	// The template expects a %s placeholder for the flow as JSON.
	PromptDIML = "diml"
)
