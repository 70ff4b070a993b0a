package mcp

import "github.com/custodia-labs/intentflow/internal/core/ports/driving"

// Ports contains the driving ports the MCP server depends on.
type Ports struct {
	Intent driving.IntentService
}

// Validate checks that required ports are provided.
func (p *Ports) Validate() error {
	if p == nil || p.Intent == nil {
		return ErrMissingIntentService
	}
	return nil
}
