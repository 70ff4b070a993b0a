package diml

import (
	"strings"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

// Validation messages, reported in this order.
const (
	MsgMissingRoot      = "Missing root deepFlow element"
	MsgMissingID        = "Missing id attribute on deepFlow element"
	MsgMissingIntent    = "Missing intent attribute on deepFlow element"
	MsgMissingMetadata  = "Missing metadata section"
	MsgMissingResources = "Missing resources section"
	MsgMissingSteps     = "Missing steps section"
	MsgMissingOutput    = "Missing output section"
)

var requiredSections = []struct {
	name string
	msg  string
}{
	{"metadata", MsgMissingMetadata},
	{"resources", MsgMissingResources},
	{"steps", MsgMissingSteps},
	{"output", MsgMissingOutput},
}

// ValidationResult is the outcome of a structural check.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationError reports why a document could not be decoded.
// It unwraps to domain.ErrInvalidDIML.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return domain.ErrInvalidDIML.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidDIML
}

// Validate checks that text is a DIML document without building a flow.
// Unparseable XML yields exactly one message, the parser error. Otherwise
// every missing root, attribute and section is reported. An empty id or
// intent attribute counts as missing; an empty section does not.
func Validate(text string) ValidationResult {
	doc, err := parse(text)
	if err != nil {
		return ValidationResult{Errors: []string{err.Error()}}
	}

	var errs []string
	root := doc.child(RootElement)
	if root == nil {
		errs = append(errs, MsgMissingRoot)
	}
	if root.attr("id") == "" {
		errs = append(errs, MsgMissingID)
	}
	if root.attr("intent") == "" {
		errs = append(errs, MsgMissingIntent)
	}
	for _, sec := range requiredSections {
		if root.child(sec.name) == nil {
			errs = append(errs, sec.msg)
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
