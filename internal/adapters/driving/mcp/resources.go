package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

const uriScheme = "intentflow://"

const (
	mimeJSON = "application/json"
	mimeXML  = "application/xml"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "intents/{intentId}",
		Name:        "intent",
		Description: "A decomposed intent",
		MIMEType:    mimeJSON,
	}, s.handleIntentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "intents/{intentId}/flows",
		Name:        "intent-flows",
		Description: "Flows generated for an intent, in generation order",
		MIMEType:    mimeJSON,
	}, s.handleIntentFlowsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "flows/{flowId}/diml",
		Name:        "flow-diml",
		Description: "A stored flow rendered as DIML",
		MIMEType:    mimeXML,
	}, s.handleFlowDIMLResource)
}

func (s *Server) handleIntentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractIntentID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	intent, err := s.ports.Intent.GetIntent(ctx, id)
	if err != nil {
		return nil, resourceError(req.Params.URI, err)
	}
	return jsonContents(req.Params.URI, intentView(intent))
}

func (s *Server) handleIntentFlowsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractFlowsIntentID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// ListFlows of an unknown intent is empty; surface that as not found.
	if _, err := s.ports.Intent.GetIntent(ctx, id); err != nil {
		return nil, resourceError(req.Params.URI, err)
	}
	flows, err := s.ports.Intent.ListFlows(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}
	return jsonContents(req.Params.URI, flowViews(flows))
}

func (s *Server) handleFlowDIMLResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractDIMLFlowID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	text, err := s.ports.Intent.ExportDIML(ctx, id)
	if err != nil {
		return nil, resourceError(req.Params.URI, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: mimeXML,
			Text:     text,
		}},
	}, nil
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

func resourceError(uri string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return mcp.ResourceNotFoundError(uri)
	}
	return err
}

// extractIntentID extracts the id from intentflow://intents/{intentId}.
func extractIntentID(uri string) string {
	const prefix = uriScheme + "intents/"

	id, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractFlowsIntentID extracts the id from intentflow://intents/{intentId}/flows.
func extractFlowsIntentID(uri string) string {
	return between(uri, uriScheme+"intents/", "/flows")
}

// extractDIMLFlowID extracts the id from intentflow://flows/{flowId}/diml.
func extractDIMLFlowID(uri string) string {
	return between(uri, uriScheme+"flows/", "/diml")
}

func between(uri, prefix, suffix string) string {
	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, suffix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
