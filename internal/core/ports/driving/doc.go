// Package driving provides interfaces for actor-facing adapters
// (primary/inbound ports). The CLI and the MCP server drive the core
// through these interfaces.
package driving
