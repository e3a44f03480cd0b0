// Package specialist defines the closed set of intent handlers and the
// dispatch from a routing decision to one of them. Each specialist binds a
// system prompt to a subset of the tool registry; the Unresolved
// pseudo-specialist answers with a clarifying question and never calls tools.
package specialist
