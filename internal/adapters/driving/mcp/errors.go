// Package mcp provides an MCP (Model Context Protocol) server adapter
// for Quiver. It exposes the document memory store as tools that AI
// assistants call to remember and recall information.
package mcp

import "errors"

// ErrMissingMemoryService is returned when the memory service is not provided.
var ErrMissingMemoryService = errors.New("mcp: memory service is required")
