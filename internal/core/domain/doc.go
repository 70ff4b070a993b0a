// Package domain defines the core business entities for intentflow.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Intent: raw user text plus a main goal and ordered sub-goals
//   - Flow: a concrete plan of resources, ordered steps and a combine rule
//   - IntentUpdate / FlowUpdate: shallow, field-level partial updates
//   - Settings: process configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
