// Package tools implements the tool registry: named, schema-validated,
// idempotency-aware operations over the external data store.
//
// Every invocation attempt, successful or not, produces exactly one
// append-only audit record before the result is returned. Validation never
// performs side effects; execution runs only after a successful validation
// and is bounded by a short timeout whose expiry surfaces as a timeout-kind
// error rather than a turn failure.
package tools
