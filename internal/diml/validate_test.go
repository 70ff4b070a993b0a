package diml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		valid    bool
		expected []string
	}{
		{
			name:  "sample document",
			input: sampleDIML,
			valid: true,
		},
		{
			name:  "empty sections are present",
			input: `<deepFlow id="f" intent="i"><metadata/><resources/><steps/><output/></deepFlow>`,
			valid: true,
		},
		{
			name:  "all four sections missing",
			input: `<deepFlow id="f1" intent="i1"></deepFlow>`,
			expected: []string{
				MsgMissingMetadata,
				MsgMissingResources,
				MsgMissingSteps,
				MsgMissingOutput,
			},
		},
		{
			name:  "empty attributes count as missing",
			input: `<deepFlow id="" intent=""><metadata/><resources/><steps/><output/></deepFlow>`,
			expected: []string{
				MsgMissingID,
				MsgMissingIntent,
			},
		},
		{
			name:  "wrong root",
			input: `<flow id="f1" intent="i1"><metadata/></flow>`,
			expected: []string{
				MsgMissingRoot,
				MsgMissingID,
				MsgMissingIntent,
				MsgMissingMetadata,
				MsgMissingResources,
				MsgMissingSteps,
				MsgMissingOutput,
			},
		},
		{
			name:  "empty input has no root",
			input: "",
			expected: []string{
				MsgMissingRoot,
				MsgMissingID,
				MsgMissingIntent,
				MsgMissingMetadata,
				MsgMissingResources,
				MsgMissingSteps,
				MsgMissingOutput,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.input)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.expected, res.Errors)
		})
	}
}

func TestValidate_MalformedXML(t *testing.T) {
	tests := []string{
		`<deepFlow id="f1" intent="i1">`,
		`<deepFlow id="f1" intent="i1"></flow>`,
		`<deepFlow id="f1 intent="i1"/>`,
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			res := Validate(input)
			assert.False(t, res.Valid)
			require.Len(t, res.Errors, 1)
			assert.Contains(t, res.Errors[0], "XML syntax error")
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Errors: []string{"a", "b"}}
	assert.Equal(t, "invalid DIML: a; b", err.Error())
}
