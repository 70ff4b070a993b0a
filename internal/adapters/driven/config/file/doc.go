// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML settings file, read-only
//   - PromptStore: user-editable planner prompts with embedded defaults
package file
