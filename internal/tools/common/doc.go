// Package common holds what every tool handler shares: the instrumentation
// wrapper and the conversion of results and mail errors into MCP results.
package common
