package repoforge

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Overridable is a configuration value paired with the organization's
// override policy for it.
//
// Two document shapes decode into it:
//
//	wiki:
//	  value: false
//	  override_allowed: false
//
// and the bare form:
//
//	wiki: false
//
// The record shape is reserved for the organization-wide defaults document,
// where override policy is declared. Lower layers use the bare form, which
// decodes with OverrideAllowed set to true; their values are candidates to
// be overridden, never declarers of policy.
type Overridable[T any] struct {
	Value           T
	OverrideAllowed bool

	// explicit records that the document used the record shape. The
	// validator uses this to reject policy declarations outside the
	// global layer.
	explicit bool
}

// Value returns an Overridable that permits override by higher layers.
func Value[T any](v T) *Overridable[T] {
	return &Overridable[T]{Value: v, OverrideAllowed: true}
}

// Locked returns an Overridable that forbids override by higher layers.
func Locked[T any](v T) *Overridable[T] {
	return &Overridable[T]{Value: v, OverrideAllowed: false, explicit: true}
}

// Explicit reports whether the document declared the value with the record
// shape rather than a bare value. Safe to call on an absent (nil) field.
func (o *Overridable[T]) Explicit() bool {
	return o != nil && o.explicit
}

// overridableRecord is the explicit document shape.
type overridableRecord[T any] struct {
	Value           T     `yaml:"value"`
	OverrideAllowed *bool `yaml:"override_allowed"`
}

// UnmarshalYAML decodes either shape. It tries the record shape first and
// falls back to treating the raw node as a bare value with override
// permitted.
func (o *Overridable[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode && hasMappingKey(node, "value") {
		var rec overridableRecord[T]
		if err := node.Decode(&rec); err != nil {
			return fmt.Errorf("decode override record: %w", err)
		}
		o.Value = rec.Value
		o.OverrideAllowed = rec.OverrideAllowed == nil || *rec.OverrideAllowed
		o.explicit = true
		return nil
	}

	var bare T
	if err := node.Decode(&bare); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	o.Value = bare
	o.OverrideAllowed = true
	o.explicit = false
	return nil
}

// MarshalYAML emits the record shape when the value was declared explicitly
// or carries a non-default policy, and the bare form otherwise.
func (o *Overridable[T]) MarshalYAML() (any, error) {
	if o.explicit || !o.OverrideAllowed {
		allowed := o.OverrideAllowed
		return overridableRecord[T]{Value: o.Value, OverrideAllowed: &allowed}, nil
	}
	return o.Value, nil
}

// hasMappingKey reports whether a YAML mapping node contains the given key.
func hasMappingKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
