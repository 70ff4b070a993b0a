package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/diml"
)

// CreateIntentInput is the input schema for the create_intent tool.
type CreateIntentInput struct {
	RawIntent string `json:"rawIntent" jsonschema:"the user's goal in natural language"`
}

// IntentIDInput selects an intent.
type IntentIDInput struct {
	IntentID string `json:"intentId" jsonschema:"the intent identifier"`
}

// RefineIntentInput is the input schema for the refine_intent tool.
type RefineIntentInput struct {
	IntentID string           `json:"intentId" jsonschema:"the intent identifier"`
	MainGoal *domain.MainGoal `json:"mainGoal,omitempty" jsonschema:"replacement main goal"`
	SubGoals []domain.SubGoal `json:"subGoals,omitempty" jsonschema:"replacement sub-goals, replaced as a whole"`
}

// FlowIDInput selects a flow.
type FlowIDInput struct {
	FlowID string `json:"flowId" jsonschema:"the flow identifier"`
}

// DIMLInput carries a DIML document.
type DIMLInput struct {
	DIML string `json:"diml" jsonschema:"the DIML document text"`
}

// IntentOutput wraps a single intent.
type IntentOutput struct {
	Intent IntentView `json:"intent"`
}

// FlowOutput wraps a single flow.
type FlowOutput struct {
	Flow FlowView `json:"flow"`
}

// FlowsOutput is the output schema for the generate_flows tool.
type FlowsOutput struct {
	Flows []FlowView `json:"flows"`
	Count int        `json:"count"`
}

// DescriptionOutput is the output schema for the describe_flow tool.
type DescriptionOutput struct {
	FlowID      string `json:"flowId"`
	Description string `json:"description"`
}

// DIMLOutput is the output schema for the export_diml tool.
type DIMLOutput struct {
	FlowID string `json:"flowId"`
	DIML   string `json:"diml"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_intent",
		Description: "Decompose a natural-language goal into a draft intent",
	}, s.handleCreateIntent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_intent",
		Description: "Fetch an intent by id",
	}, s.handleGetIntent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refine_intent",
		Description: "Replace the main goal or sub-goals of a draft intent",
	}, s.handleRefineIntent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "finalize_intent",
		Description: "Finalize a draft intent so flows can be generated from it",
	}, s.handleFinalizeIntent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_flows",
		Description: "Generate and store executable flows for an intent",
	}, s.handleGenerateFlows)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_flow",
		Description: "Fetch a flow by id",
	}, s.handleGetFlow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "describe_flow",
		Description: "Return the natural-language description of a flow",
	}, s.handleDescribeFlow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "export_diml",
		Description: "Export a stored flow as a DIML document",
	}, s.handleExportDIML)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "validate_diml",
		Description: "Check a DIML document for structural problems",
	}, s.handleValidateDIML)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "import_diml",
		Description: "Decode a DIML document and store the flow it describes",
	}, s.handleImportDIML)
}

func (s *Server) handleCreateIntent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateIntentInput,
) (*mcp.CallToolResult, IntentOutput, error) {
	intent, err := s.ports.Intent.CreateIntent(ctx, input.RawIntent)
	if err != nil {
		return nil, IntentOutput{}, err
	}
	return nil, IntentOutput{Intent: intentView(intent)}, nil
}

func (s *Server) handleGetIntent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IntentIDInput,
) (*mcp.CallToolResult, IntentOutput, error) {
	intent, err := s.ports.Intent.GetIntent(ctx, input.IntentID)
	if err != nil {
		return nil, IntentOutput{}, err
	}
	return nil, IntentOutput{Intent: intentView(intent)}, nil
}

func (s *Server) handleRefineIntent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RefineIntentInput,
) (*mcp.CallToolResult, IntentOutput, error) {
	update := domain.IntentUpdate{
		MainGoal: input.MainGoal,
		SubGoals: input.SubGoals,
	}
	intent, err := s.ports.Intent.RefineIntent(ctx, input.IntentID, update)
	if err != nil {
		return nil, IntentOutput{}, err
	}
	return nil, IntentOutput{Intent: intentView(intent)}, nil
}

func (s *Server) handleFinalizeIntent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IntentIDInput,
) (*mcp.CallToolResult, IntentOutput, error) {
	intent, err := s.ports.Intent.FinalizeIntent(ctx, input.IntentID)
	if err != nil {
		return nil, IntentOutput{}, err
	}
	return nil, IntentOutput{Intent: intentView(intent)}, nil
}

func (s *Server) handleGenerateFlows(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IntentIDInput,
) (*mcp.CallToolResult, FlowsOutput, error) {
	flows, err := s.ports.Intent.GenerateFlows(ctx, input.IntentID)
	if err != nil {
		return nil, FlowsOutput{}, err
	}
	return nil, FlowsOutput{Flows: flowViews(flows), Count: len(flows)}, nil
}

func (s *Server) handleGetFlow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FlowIDInput,
) (*mcp.CallToolResult, FlowOutput, error) {
	flow, err := s.ports.Intent.GetFlow(ctx, input.FlowID)
	if err != nil {
		return nil, FlowOutput{}, err
	}
	return nil, FlowOutput{Flow: flowView(flow)}, nil
}

func (s *Server) handleDescribeFlow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FlowIDInput,
) (*mcp.CallToolResult, DescriptionOutput, error) {
	desc, err := s.ports.Intent.DescribeFlow(ctx, input.FlowID)
	if err != nil {
		return nil, DescriptionOutput{}, err
	}
	return nil, DescriptionOutput{FlowID: input.FlowID, Description: desc}, nil
}

func (s *Server) handleExportDIML(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FlowIDInput,
) (*mcp.CallToolResult, DIMLOutput, error) {
	text, err := s.ports.Intent.ExportDIML(ctx, input.FlowID)
	if err != nil {
		return nil, DIMLOutput{}, err
	}
	return nil, DIMLOutput{FlowID: input.FlowID, DIML: text}, nil
}

// handleValidateDIML reports problems in the result rather than as a tool
// error so callers see every message.
func (s *Server) handleValidateDIML(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DIMLInput,
) (*mcp.CallToolResult, diml.ValidationResult, error) {
	return nil, s.ports.Intent.ValidateDIML(input.DIML), nil
}

func (s *Server) handleImportDIML(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DIMLInput,
) (*mcp.CallToolResult, FlowOutput, error) {
	flow, err := s.ports.Intent.ImportDIML(ctx, input.DIML)
	if err != nil {
		return nil, FlowOutput{}, fmt.Errorf("import: %w", err)
	}
	return nil, FlowOutput{Flow: flowView(flow)}, nil
}
