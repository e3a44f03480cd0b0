// Package router classifies user messages into the closed specialist set.
//
// Classification asks the model for a strict JSON structure validated against
// a declared schema. A malformed reply is retried exactly once with an
// amended prompt, then fails closed to the default specialist. A model
// timeout falls back to a deterministic keyword classifier with a fixed,
// clearly lower confidence. Confidence below the configured threshold
// overrides the target to Unresolved.
package router
