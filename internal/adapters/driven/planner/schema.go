package planner

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Embedded schema names.
const (
	schemaOutline = "outline"
	schemaFlows   = "flows"
)

// SchemaError reports a collaborator answer that does not fit the expected shape.
// It unwraps to domain.ErrMalformedOutput.
type SchemaError struct {
	// Document names what was being parsed, e.g. "outline".
	Document string

	// Details lists the individual problems, sorted.
	Details []string
}

func (e *SchemaError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("malformed %s", e.Document)
	}
	return fmt.Sprintf("malformed %s: %s", e.Document, strings.Join(e.Details, "; "))
}

func (e *SchemaError) Unwrap() error {
	return domain.ErrMalformedOutput
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

// compiledSchema returns the embedded schema called name.
func compiledSchema(name string) (*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		schemas = make(map[string]*jsonschema.Schema)
		for _, n := range []string{schemaOutline, schemaFlows} {
			data, err := schemaFS.ReadFile("schemas/" + n + ".json")
			if err != nil {
				schemasErr = fmt.Errorf("read %s schema: %w", n, err)
				return
			}
			schema, err := jsonschema.NewCompiler().Compile(data)
			if err != nil {
				schemasErr = fmt.Errorf("compile %s schema: %w", n, err)
				return
			}
			schemas[n] = schema
		}
	})
	if schemasErr != nil {
		return nil, schemasErr
	}
	return schemas[name], nil
}

// validateJSON checks raw JSON against the named schema.
func validateJSON(name, raw string) error {
	schema, err := compiledSchema(name)
	if err != nil {
		return err
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return &SchemaError{Document: name, Details: []string{err.Error()}}
	}

	result := schema.Validate(data)
	if result.IsValid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors))
	for keyword, detail := range result.Errors {
		details = append(details, keyword+": "+detail.Message)
	}
	slices.Sort(details)
	return &SchemaError{Document: name, Details: details}
}
