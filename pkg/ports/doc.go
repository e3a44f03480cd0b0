// Package ports declares the capability interfaces the application core
// depends on: the language model, the durable repository, the audit event
// publisher, and metrics. Adapters in pkg/adapters implement them; the
// application packages never import an adapter directly.
package ports
