// Package domain defines the core business entities for Quiver.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentMetadata: Document-level metadata carried on every chunk
//   - ChunkPayload: The full payload stored on a single vector point
//   - DocumentSummary: A grouped, document-level view of chunk hits
//   - FilterCondition: One tagged condition of a translated filter
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
