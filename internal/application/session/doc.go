// Package session drives a conversation turn from user message to
// persisted reply. A turn advances through classification, specialist
// dispatch, tool execution, streamed composition and atomic persistence,
// emitting an ordered event stream the caller can render live. The
// manager serializes turns per conversation and owns graceful shutdown.
package session
