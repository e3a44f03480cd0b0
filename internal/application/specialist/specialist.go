package specialist

import (
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

// Specialist is one bound intent handler: a behavioral system prompt plus the
// subset of registry tools it may call. The turn loop is generic over this
// interface, so adding a specialist never changes the orchestration session.
type Specialist interface {
	Kind() domain.Specialist
	System() string
	// Tools lists the registry tool names bound to this specialist.
	Tools() []string
}

// Clarifier is implemented by specialists that answer directly, without the
// model and without tool calls.
type Clarifier interface {
	Clarify(userMessage string) string
}

// Dispatch maps a routing decision to its specialist. The set is closed:
// For switches exhaustively over the domain.Specialist variants.
type Dispatch struct {
	support    Specialist
	order      Specialist
	billing    Specialist
	unresolved Specialist
}

// NewDispatch builds the fixed specialist set.
func NewDispatch() *Dispatch {
	return &Dispatch{
		support:    &supportSpecialist{},
		order:      &orderSpecialist{},
		billing:    &billingSpecialist{},
		unresolved: &unresolvedSpecialist{},
	}
}

// For returns the specialist for a routing target.
func (d *Dispatch) For(target domain.Specialist) (Specialist, error) {
	switch target {
	case domain.SpecialistSupport:
		return d.support, nil
	case domain.SpecialistOrder:
		return d.order, nil
	case domain.SpecialistBilling:
		return d.billing, nil
	case domain.SpecialistUnresolved:
		return d.unresolved, nil
	default:
		return nil, domain.NewError(domain.KindInternal, "unknown specialist: %s", target)
	}
}
