package specialist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

func TestDispatchCoversAllTargets(t *testing.T) {
	d := NewDispatch()

	for _, target := range []domain.Specialist{
		domain.SpecialistSupport,
		domain.SpecialistOrder,
		domain.SpecialistBilling,
		domain.SpecialistUnresolved,
	} {
		spec, err := d.For(target)
		require.NoError(t, err, target)
		assert.Equal(t, target, spec.Kind())
	}

	_, err := d.For(domain.Specialist("escalation"))
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestToolBindings(t *testing.T) {
	d := NewDispatch()

	order, err := d.For(domain.SpecialistOrder)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"getOrderDetails", "cancelOrder"}, order.Tools())

	billing, err := d.For(domain.SpecialistBilling)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"getInvoice", "processRefund"}, billing.Tools())

	// The order team cannot touch refunds and billing cannot cancel orders.
	assert.NotContains(t, order.Tools(), "processRefund")
	assert.NotContains(t, billing.Tools(), "cancelOrder")
}

func TestUnresolvedClarifiesWithoutTools(t *testing.T) {
	d := NewDispatch()

	spec, err := d.For(domain.SpecialistUnresolved)
	require.NoError(t, err)
	assert.Empty(t, spec.Tools())

	clarifier, ok := spec.(Clarifier)
	require.True(t, ok)
	assert.NotEmpty(t, clarifier.Clarify("hmm"))
}
