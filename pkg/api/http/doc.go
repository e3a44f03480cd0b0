// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Submitting user messages (synchronous turns)
//   - Conversation, message and audit trail queries
//   - Health checks
//   - Prometheus metrics
package http
