// Package anthropic implements the LLM client port on top of the
// Anthropic Messages API, including tool use and streamed output.
package anthropic
