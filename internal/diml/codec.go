package diml

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

// RootElement is the name of the DIML document element.
const RootElement = "deepFlow"

// dimlFlow mirrors the DIML element tree.
type dimlFlow struct {
	XMLName   xml.Name      `xml:"deepFlow"`
	ID        string        `xml:"id,attr"`
	Intent    string        `xml:"intent,attr"`
	Metadata  dimlMetadata  `xml:"metadata"`
	Resources dimlResources `xml:"resources"`
	Steps     dimlSteps     `xml:"steps"`
	Output    dimlOutput    `xml:"output"`
}

type dimlMetadata struct {
	Author            string `xml:"author"`
	Created           string `xml:"created"`
	EstimatedCost     string `xml:"estimatedCost"`
	EstimatedDuration string `xml:"estimatedDuration"`
}

type dimlResources struct {
	Resource []dimlResource `xml:"resource"`
}

type dimlResource struct {
	ID       string `xml:"id,attr"`
	Type     string `xml:"type,attr"`
	Provider string `xml:"provider,attr"`
}

type dimlSteps struct {
	Step []dimlStep `xml:"step"`
}

type dimlStep struct {
	ID      string     `xml:"id,attr"`
	Depends string     `xml:"depends,attr"`
	Action  dimlAction `xml:"action"`
}

type dimlAction struct {
	Resource string   `xml:"resource,attr"`
	Query    string   `xml:"query"`
	Output   dimlBind `xml:"output"`
}

type dimlBind struct {
	Bind string `xml:"bind,attr"`
}

type dimlOutput struct {
	Combine dimlCombine `xml:"combine"`
}

type dimlCombine struct {
	Item []dimlItem `xml:"item"`
}

type dimlItem struct {
	Source string `xml:"source,attr"`
}

// Encode renders a flow as DIML with two-space indentation and no XML
// declaration. The created time is written in UTC with nanosecond precision;
// a zero time is written empty.
func Encode(flow *domain.Flow) (string, error) {
	if flow == nil {
		return "", fmt.Errorf("%w: flow is nil", domain.ErrInvalidInput)
	}
	cost := flow.Metadata.EstimatedCost
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return "", fmt.Errorf("%w: estimated cost %v is not finite", domain.ErrInvalidInput, cost)
	}
	if err := checkText(flow); err != nil {
		return "", err
	}

	doc := dimlFlow{
		ID:     flow.ID,
		Intent: flow.IntentID,
		Metadata: dimlMetadata{
			Author:            flow.Metadata.Author,
			Created:           formatCreated(flow.Metadata.Created),
			EstimatedCost:     strconv.FormatFloat(cost, 'f', -1, 64),
			EstimatedDuration: flow.Metadata.EstimatedDuration,
		},
	}
	for _, r := range flow.Resources {
		doc.Resources.Resource = append(doc.Resources.Resource, dimlResource{
			ID:       r.ID,
			Type:     r.Type,
			Provider: r.Provider,
		})
	}
	for _, s := range flow.Steps {
		doc.Steps.Step = append(doc.Steps.Step, dimlStep{
			ID:      s.ID,
			Depends: s.Depends,
			Action: dimlAction{
				Resource: s.Action.Resource,
				Query:    s.Action.Query,
				Output:   dimlBind{Bind: s.Action.Output},
			},
		})
	}
	for _, item := range flow.Output.Combine.Items {
		doc.Output.Combine.Item = append(doc.Output.Combine.Item, dimlItem{Source: item})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode flow %s: %w", flow.ID, err)
	}
	return string(out), nil
}

// checkText rejects strings that XML 1.0 cannot carry. encoding/xml would
// otherwise replace them with U+FFFD and the flow would not decode back.
func checkText(flow *domain.Flow) error {
	fields := []struct{ name, value string }{
		{"id", flow.ID},
		{"intentId", flow.IntentID},
		{"metadata.author", flow.Metadata.Author},
		{"metadata.estimatedDuration", flow.Metadata.EstimatedDuration},
	}
	for i, r := range flow.Resources {
		p := fmt.Sprintf("resources[%d].", i)
		fields = append(fields,
			struct{ name, value string }{p + "id", r.ID},
			struct{ name, value string }{p + "type", r.Type},
			struct{ name, value string }{p + "provider", r.Provider},
		)
	}
	for i, st := range flow.Steps {
		p := fmt.Sprintf("steps[%d].", i)
		fields = append(fields,
			struct{ name, value string }{p + "id", st.ID},
			struct{ name, value string }{p + "depends", st.Depends},
			struct{ name, value string }{p + "action.resource", st.Action.Resource},
			struct{ name, value string }{p + "action.query", st.Action.Query},
			struct{ name, value string }{p + "action.output", st.Action.Output},
		)
	}
	for i, item := range flow.Output.Combine.Items {
		fields = append(fields, struct{ name, value string }{fmt.Sprintf("output.combine[%d]", i), item})
	}

	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidInput, f.name)
		}
		for _, r := range f.value {
			if !isXMLChar(r) {
				return fmt.Errorf("%w: %s contains character %U not allowed in XML", domain.ErrInvalidInput, f.name, r)
			}
		}
	}
	return nil
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == 0x09, r == 0x0A, r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// Decode parses DIML into a flow. Structurally invalid documents fail with a
// *ValidationError. Repeatable groups always decode to non-nil slices, and
// fields DIML cannot carry decode to their zero values.
func Decode(text string) (*domain.Flow, error) {
	if res := Validate(text); !res.Valid {
		return nil, &ValidationError{Errors: res.Errors}
	}

	var doc dimlFlow
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDIML, err)
	}

	created, err := parseCreated(doc.Metadata.Created)
	if err != nil {
		return nil, err
	}
	cost, err := parseCost(doc.Metadata.EstimatedCost)
	if err != nil {
		return nil, err
	}

	flow := &domain.Flow{
		ID:       doc.ID,
		IntentID: doc.Intent,
		Metadata: domain.FlowMetadata{
			Author:            doc.Metadata.Author,
			Created:           created,
			EstimatedCost:     cost,
			EstimatedDuration: doc.Metadata.EstimatedDuration,
		},
		Resources: make([]domain.FlowResource, 0, len(doc.Resources.Resource)),
		Steps:     make([]domain.FlowStep, 0, len(doc.Steps.Step)),
		Output: domain.FlowOutput{
			Combine: domain.Combine{Items: make([]string, 0, len(doc.Output.Combine.Item))},
		},
	}
	for _, r := range doc.Resources.Resource {
		flow.Resources = append(flow.Resources, domain.FlowResource{
			ID:       r.ID,
			Type:     r.Type,
			Provider: r.Provider,
		})
	}
	for _, s := range doc.Steps.Step {
		flow.Steps = append(flow.Steps, domain.FlowStep{
			ID:      s.ID,
			Depends: s.Depends,
			Action: domain.StepAction{
				Resource: s.Action.Resource,
				Query:    s.Action.Query,
				Output:   s.Action.Output.Bind,
			},
		})
	}
	for _, item := range doc.Output.Combine.Item {
		flow.Output.Combine.Items = append(flow.Output.Combine.Items, item.Source)
	}
	return flow, nil
}

// Export renders a flow as formatted DIML with an XML declaration.
func Export(flow *domain.Flow) (string, error) {
	text, err := Encode(flow)
	if err != nil {
		return "", err
	}
	return Format(text)
}

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseCreated(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: created %q: %v", domain.ErrInvalidDIML, s, err)
	}
	return t.UTC(), nil
}

func parseCost(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: estimatedCost %q is not a finite number", domain.ErrInvalidDIML, s)
	}
	return v, nil
}
