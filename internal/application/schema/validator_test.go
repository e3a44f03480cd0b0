package schema

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

var testSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"order_id"},
	Properties: map[string]*jsonschema.Schema{
		"order_id": {Type: "string"},
		"amount":   {Type: "integer", Minimum: F64(1)},
	},
}

func TestValidateAccepts(t *testing.T) {
	v := NewValidator()
	err := v.Validate(testSchema, []byte(`{"order_id": "ORD-1", "amount": 5}`))
	require.NoError(t, err)
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	v := NewValidator()
	err := v.Validate(testSchema, []byte(`{"amount": 5}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestValidateRejectsWrongType(t *testing.T) {
	v := NewValidator()
	err := v.Validate(testSchema, []byte(`{"order_id": 12}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	v := NewValidator()
	err := v.Validate(testSchema, []byte(`{"order_id": `))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestValidateRejectsBoundViolation(t *testing.T) {
	v := NewValidator()
	err := v.Validate(testSchema, []byte(`{"order_id": "ORD-1", "amount": 0}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestValidateInto(t *testing.T) {
	v := NewValidator()

	var out struct {
		OrderID string `json:"order_id"`
		Amount  int    `json:"amount"`
	}
	err := v.ValidateInto(testSchema, []byte(`{"order_id": "ORD-9", "amount": 3}`), &out)
	require.NoError(t, err)
	assert.Equal(t, "ORD-9", out.OrderID)
	assert.Equal(t, 3, out.Amount)
}

func TestValidateCachesResolution(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Validate(testSchema, []byte(`{"order_id": "a"}`)))
	require.NoError(t, v.Validate(testSchema, []byte(`{"order_id": "b"}`)))
	assert.Len(t, v.resolved, 1)
}

func TestProperties(t *testing.T) {
	props, err := Properties(testSchema)
	require.NoError(t, err)
	require.Contains(t, props, "order_id")
	require.Contains(t, props, "amount")

	orderID, ok := props["order_id"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", orderID["type"])
}
