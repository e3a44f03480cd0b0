package specialist

import (
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

type supportSpecialist struct{}

func (s *supportSpecialist) Kind() domain.Specialist { return domain.SpecialistSupport }

func (s *supportSpecialist) System() string {
	return `You are a general customer support agent.
Answer account and product questions helpfully and concisely.
You may look up orders and invoices for context, but direct the customer to the
order or billing team for changes. Never invent order or invoice data: if you
need details, call a tool.`
}

func (s *supportSpecialist) Tools() []string {
	return []string{"getOrderDetails", "getInvoice"}
}

type orderSpecialist struct{}

func (s *orderSpecialist) Kind() domain.Specialist { return domain.SpecialistOrder }

func (s *orderSpecialist) System() string {
	return `You are an order support agent.
Help customers with order status, shipping, delivery and cancellations.
Always look an order up before answering questions about it. When asked about
delivery, report the order's current status and tracking identifier. Only
cancel an order when the customer clearly asks for it.`
}

func (s *orderSpecialist) Tools() []string {
	return []string{"getOrderDetails", "cancelOrder"}
}

type billingSpecialist struct{}

func (s *billingSpecialist) Kind() domain.Specialist { return domain.SpecialistBilling }

func (s *billingSpecialist) System() string {
	return `You are a billing support agent.
Help customers with invoices, charges and refunds.
Always look an invoice up before discussing it. Process a refund only when the
customer clearly requests one and names the invoice; report back whether the
refund completed or awaits approval. Amounts are in cents.`
}

func (s *billingSpecialist) Tools() []string {
	return []string{"getInvoice", "processRefund"}
}

// unresolvedSpecialist handles low-confidence turns: a single clarifying
// question, no model call, no tool calls.
type unresolvedSpecialist struct{}

func (s *unresolvedSpecialist) Kind() domain.Specialist { return domain.SpecialistUnresolved }

func (s *unresolvedSpecialist) System() string { return "" }

func (s *unresolvedSpecialist) Tools() []string { return nil }

func (s *unresolvedSpecialist) Clarify(userMessage string) string {
	return "I want to make sure I route you to the right team. " +
		"Could you tell me a bit more about what you need help with? " +
		"An order number or invoice number helps if you have one."
}
