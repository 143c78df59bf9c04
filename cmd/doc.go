// Package cmd implements the command-line interface for inboxreader.
//
// This package provides the following commands:
//   - serve: Start the MCP server over stdio or streamable HTTP
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the MCP tools
package cmd
