package schema

import (
	"encoding/json"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

// Validator checks structured data against declared JSON schemas. Resolution
// results are cached per schema; safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	resolved map[*jsonschema.Schema]*jsonschema.Resolved
}

// NewValidator creates a new schema validator.
func NewValidator() *Validator {
	return &Validator{
		resolved: make(map[*jsonschema.Schema]*jsonschema.Resolved),
	}
}

// Validate checks raw JSON data against the schema. Returns a validation-kind
// error on malformed JSON or a schema violation; never performs side effects.
func (v *Validator) Validate(s *jsonschema.Schema, data []byte) error {
	resolved, err := v.resolve(s)
	if err != nil {
		return domain.WrapError(domain.KindInternal, err, "resolving schema")
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return domain.WrapError(domain.KindValidation, err, "malformed JSON")
	}

	if err := resolved.Validate(instance); err != nil {
		return domain.WrapError(domain.KindValidation, err, "schema violation")
	}

	return nil
}

// ValidateInto validates data against the schema and, on success, unmarshals
// it into out.
func (v *Validator) ValidateInto(s *jsonschema.Schema, data []byte, out any) error {
	if err := v.Validate(s, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.WrapError(domain.KindValidation, err, "decoding validated data")
	}
	return nil
}

func (v *Validator) resolve(s *jsonschema.Schema) (*jsonschema.Resolved, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if r, ok := v.resolved[s]; ok {
		return r, nil
	}

	r, err := s.Resolve(nil)
	if err != nil {
		return nil, err
	}
	v.resolved[s] = r
	return r, nil
}

// Properties flattens a schema's properties into the generic map shape the
// LLM capability expects for tool declarations.
func Properties(s *jsonschema.Schema) (map[string]any, error) {
	props := make(map[string]any, len(s.Properties))
	for name, prop := range s.Properties {
		data, err := json.Marshal(prop)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		props[name] = m
	}
	return props, nil
}

// F64 is a convenience for schema bounds.
func F64(v float64) *float64 {
	return &v
}
