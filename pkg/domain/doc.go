// Package domain defines the core entities of the support system:
// conversations and their messages, routing decisions, the tool invocation
// audit trail, idempotency records, and the commerce entities the tools
// operate on (orders, invoices, refunds).
//
// Types here carry no behavior beyond invariant checks; all orchestration
// lives in the application packages.
package domain
