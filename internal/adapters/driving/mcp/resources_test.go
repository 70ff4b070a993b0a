package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intentflow/internal/core/domain"
)

func TestExtractIntentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid intent URI", uri: "intentflow://intents/i-123", expected: "i-123"},
		{name: "flows URI is not an intent", uri: "intentflow://intents/i-123/flows", expected: ""},
		{name: "invalid prefix", uri: "file://intents/i-123", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractIntentID(tt.uri))
		})
	}
}

func TestExtractFlowsIntentID(t *testing.T) {
	assert.Equal(t, "i-1", extractFlowsIntentID("intentflow://intents/i-1/flows"))
	assert.Equal(t, "", extractFlowsIntentID("intentflow://intents/i-1"))
	assert.Equal(t, "", extractFlowsIntentID("intentflow://intents/a/b/flows"))
}

func TestExtractDIMLFlowID(t *testing.T) {
	assert.Equal(t, "f-9", extractDIMLFlowID("intentflow://flows/f-9/diml"))
	assert.Equal(t, "", extractDIMLFlowID("intentflow://flows/f-9"))
	assert.Equal(t, "", extractDIMLFlowID("file://flows/f-9/diml"))
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleIntentResource(t *testing.T) {
	ctx := context.Background()
	svc := newMockIntentService()
	svc.intents["i1"] = &domain.Intent{IntentID: "i1", RawIntent: "plan", Status: domain.IntentDraft}
	server := newTestServer(t, svc)

	t.Run("returns intent json", func(t *testing.T) {
		result, err := server.handleIntentResource(ctx, makeReadResourceRequest("intentflow://intents/i1"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, mimeJSON, result.Contents[0].MIMEType)

		var got IntentView
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		assert.Equal(t, "plan", got.RawIntent)
	})

	t.Run("unknown intent is not found", func(t *testing.T) {
		_, err := server.handleIntentResource(ctx, makeReadResourceRequest("intentflow://intents/zzz"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("service failures pass through", func(t *testing.T) {
		failing := newMockIntentService()
		failing.err = errors.New("store down")
		s := newTestServer(t, failing)

		_, err := s.handleIntentResource(ctx, makeReadResourceRequest("intentflow://intents/i1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store down")
	})
}

func TestServer_handleIntentFlowsResource(t *testing.T) {
	ctx := context.Background()
	svc := newMockIntentService()
	svc.intents["i1"] = &domain.Intent{IntentID: "i1"}
	svc.flows["f1"] = &domain.Flow{ID: "f1", IntentID: "i1"}
	svc.flows["f2"] = &domain.Flow{ID: "f2", IntentID: "other"}
	server := newTestServer(t, svc)

	result, err := server.handleIntentFlowsResource(ctx, makeReadResourceRequest("intentflow://intents/i1/flows"))
	require.NoError(t, err)

	var got []FlowView
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].ID)

	_, err = server.handleIntentFlowsResource(ctx, makeReadResourceRequest("intentflow://intents/nope/flows"))
	assert.Error(t, err)
}

func TestServer_handleFlowDIMLResource(t *testing.T) {
	ctx := context.Background()
	svc := newMockIntentService()
	svc.flows["f1"] = &domain.Flow{ID: "f1", IntentID: "i1"}
	svc.dimlText = `<deepFlow id="f1" intent="i1"/>`
	server := newTestServer(t, svc)

	result, err := server.handleFlowDIMLResource(ctx, makeReadResourceRequest("intentflow://flows/f1/diml"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, mimeXML, result.Contents[0].MIMEType)
	assert.Equal(t, svc.dimlText, result.Contents[0].Text)

	_, err = server.handleFlowDIMLResource(ctx, makeReadResourceRequest("intentflow://flows/bad"))
	assert.Error(t, err)
}
