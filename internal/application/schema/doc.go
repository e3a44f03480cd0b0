// Package schema validates structured data (model outputs, tool parameters)
// against declared JSON schemas. Validation is a pure check: it never
// performs side effects and always precedes execution.
package schema
