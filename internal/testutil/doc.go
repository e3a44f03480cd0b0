// Package testutil provides deterministic test doubles: a scripted
// LLM client and a counting metrics collector.
package testutil
