package file

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed prompts/*.txt
var defaultPromptFS embed.FS

// promptNames lists the prompts the planner uses.
var promptNames = []string{
	driven.PromptSystem,
	driven.PromptOutline,
	driven.PromptFlows,
	driven.PromptDIML,
}

// PromptStore loads planner prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
// With no directory every prompt comes from the embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a new prompt store over promptDir.
// An empty promptDir serves the embedded defaults only.
func NewPromptStore(promptDir string) *PromptStore {
	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}
}

// DefaultPrompt returns the embedded prompt for name.
func DefaultPrompt(name string) (string, error) {
	data, err := defaultPromptFS.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return strings.TrimSpace(string(data)), nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	if s.promptDir == "" {
		return DefaultPrompt(name)
	}

	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return DefaultPrompt(name)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPrompt(name)
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for _, name := range promptNames {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		content, err := DefaultPrompt(name)
		if err != nil {
			s.initErr = err
			return
		}
		if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# intentflow prompts

This directory contains the prompts the planner sends to the LLM.

## Files

- ` + "`system.txt`" + ` - System prompt shared by every request
- ` + "`outline.txt`" + ` - Decomposes a raw intent into a main goal and sub-goals
- ` + "`flows.txt`" + ` - Proposes execution flows for a raw intent
- ` + "`diml.txt`" + ` - Renders a flow as DIML

## Customisation

Edit any file to customise planner behaviour. Changes take effect after
restarting the server.

## Format Placeholders

` + "`outline.txt`, `flows.txt` and `diml.txt`" + ` each take one ` + "`%s`" + `
placeholder. Keep exactly one in each customised prompt.
`
	return os.WriteFile(path, []byte(content), 0600)
}
