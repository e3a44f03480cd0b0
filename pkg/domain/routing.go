package domain

// Specialist is the closed set of intent handlers. Adding a specialist is a
// deliberate change: every switch over this type must stay exhaustive.
type Specialist string

const (
	SpecialistSupport    Specialist = "SUPPORT"
	SpecialistOrder      Specialist = "ORDER"
	SpecialistBilling    Specialist = "BILLING"
	SpecialistUnresolved Specialist = "UNRESOLVED"
)

// KnownSpecialist reports whether s is a member of the closed set.
func KnownSpecialist(s Specialist) bool {
	switch s {
	case SpecialistSupport, SpecialistOrder, SpecialistBilling, SpecialistUnresolved:
		return true
	}
	return false
}

// RoutingDecision is produced once per user turn by the router and never
// mutated afterwards.
type RoutingDecision struct {
	Specialist Specialist `json:"agent"`
	Confidence float64    `json:"confidence"`
	Rationale  string     `json:"reasoning"`
	Entities   Entities   `json:"entities"`
	// Degraded is set when the decision came from the keyword fallback
	// instead of the model.
	Degraded bool `json:"degraded,omitempty"`
}

// Entities holds references extracted from the user message. All fields are
// best-effort and nullable; specialists must not assume presence.
type Entities struct {
	OrderID   *string `json:"order_id,omitempty"`
	InvoiceID *string `json:"invoice_id,omitempty"`
}
