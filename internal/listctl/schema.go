package listctl

import (
	"fmt"
	"slices"
)

// Kind describes how a filter field holds its value.
type Kind int

const (
	// KindMulti fields hold a set of selected values (checkbox filters).
	KindMulti Kind = iota
	// KindScalar fields hold a single free-text value.
	KindScalar
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindMulti:
		return "multi"
	case KindScalar:
		return "scalar"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Option is one selectable value of a multi-valued field.
type Option struct {
	Value string
	Label string
}

// Field describes one filter dimension.
type Field struct {
	Name    string
	Label   string
	Kind    Kind
	Options []Option // Selectable values for KindMulti fields; informational
}

// Schema is the ordered set of filter fields a list view accepts. The
// first field is the default filter target.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from the given fields. Field names must be
// non-empty and unique, and at least one field is required.
func NewSchema(fields ...Field) (Schema, error) {
	if len(fields) == 0 {
		return Schema{}, fmt.Errorf("schema needs at least one field")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return Schema{}, fmt.Errorf("field %d has no name", i)
		}
		if _, dup := index[f.Name]; dup {
			return Schema{}, fmt.Errorf("duplicate field %q", f.Name)
		}
		index[f.Name] = i
	}
	return Schema{fields: slices.Clone(fields), index: index}, nil
}

// MustSchema is like NewSchema but panics on error. Intended for
// package-level schema definitions.
func MustSchema(fields ...Field) Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the schema fields in declaration order.
func (s Schema) Fields() []Field {
	return slices.Clone(s.fields)
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether name is a field of the schema.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// DefaultField returns the name of the first field.
func (s Schema) DefaultField() string {
	if len(s.fields) == 0 {
		return ""
	}
	return s.fields[0].Name
}

// Defaults returns a filter set with every field at its empty value.
func (s Schema) Defaults() Filters {
	f := make(Filters, len(s.fields))
	for _, field := range s.fields {
		f[field.Name] = Value{}
	}
	return f
}

// Normalize returns a total filter set for the schema: unknown keys are
// dropped, missing keys are filled with the empty value, and each value
// is coerced to its field's kind.
func (s Schema) Normalize(partial Filters) Filters {
	out := s.Defaults()
	for name, v := range partial {
		field, ok := s.Field(name)
		if !ok {
			continue
		}
		out[name] = v.coerce(field.Kind)
	}
	return out
}

// Value is the content of one filter field. Multi-valued fields use
// Values, scalar fields use Text.
type Value struct {
	Values []string `json:"values,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Multi returns a multi-valued filter value.
func Multi(values ...string) Value {
	return Value{Values: values}
}

// Text returns a scalar filter value.
func Text(s string) Value {
	return Value{Text: s}
}

// IsEmpty reports whether the value selects nothing.
func (v Value) IsEmpty() bool {
	return len(v.Values) == 0 && v.Text == ""
}

// Equal reports whether two values select the same thing.
func (v Value) Equal(o Value) bool {
	return v.Text == o.Text && slices.Equal(v.Values, o.Values)
}

// coerce converts a value to the representation of kind. Multi values
// are de-duplicated preserving first occurrence; empty strings are
// dropped.
func (v Value) coerce(kind Kind) Value {
	switch kind {
	case KindScalar:
		if v.Text == "" && len(v.Values) > 0 {
			return Value{Text: v.Values[0]}
		}
		return Value{Text: v.Text}
	default:
		src := v.Values
		if len(src) == 0 && v.Text != "" {
			src = []string{v.Text}
		}
		seen := make(map[string]bool, len(src))
		var out []string
		for _, s := range src {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
		return Value{Values: out}
	}
}

// Filters maps field names to their values.
type Filters map[string]Value

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = Value{Values: slices.Clone(v.Values), Text: v.Text}
	}
	return out
}

// Values returns the selected values of a multi-valued field.
func (f Filters) Values(name string) []string {
	return f[name].Values
}

// Text returns the value of a scalar field.
func (f Filters) Text(name string) string {
	return f[name].Text
}

// IsEmpty reports whether no field selects anything.
func (f Filters) IsEmpty() bool {
	for _, v := range f {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}

// Equal reports whether two filter sets select the same things.
func (f Filters) Equal(o Filters) bool {
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
