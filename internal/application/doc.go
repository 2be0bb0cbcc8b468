// Package application wires the snapshot store, the reload watcher, the API
// handlers and the HTTP server together, keeping the main package focused on
// CLI parsing and orchestration.
package application
