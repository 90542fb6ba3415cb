package listctl

import "slices"

// State is the ephemeral view state of one list.
type State struct {
	Initialized bool
	// IsFetching is true while a mount or pagination fetch is in flight.
	IsFetching bool
	// IsFiltering is true while a debounced filter fetch is armed or in
	// flight. Tracked apart from IsFetching so the two loading
	// affordances never conflict.
	IsFiltering bool
	// ActiveField is the filter dimension the filter input targets.
	ActiveField string
	Query       Query

	fetches int // outstanding immediate fetches
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	s.Query = s.Query.Clone()
	return s
}

// Busy reports whether any loading affordance should be shown.
func (s State) Busy() bool {
	return s.IsFetching || s.IsFiltering
}

// InitialState returns the state a view starts in before mounting.
func InitialState(schema Schema, p Pagination) State {
	return State{
		ActiveField: schema.DefaultField(),
		Query: Query{
			Filters:    schema.Defaults(),
			Pagination: p.normalize(DefaultLimit),
		},
	}
}

// Intent is a named request to change list state. The set of intents
// is closed; see the types in this file.
type Intent interface {
	intent()
}

// Mount starts the initial fetch. It is a no-op once mounted.
type Mount struct{}

// SetFilterValue replaces the value of the active filter field.
type SetFilterValue struct {
	Value Value
}

// SetFilterType switches the field the filter input targets.
type SetFilterType struct {
	Field string
}

// RemoveFilterChip removes one value of a multi-valued field, or clears
// a scalar field.
type RemoveFilterChip struct {
	Field string
	Value string
}

// ClearAllFilters resets every filter to its empty value.
type ClearAllFilters struct{}

// Paginate requests a different page immediately.
type Paginate struct {
	Pagination Pagination
}

// FetchSettled reports that an immediate fetch finished, successfully
// or not.
type FetchSettled struct{}

// FilteringChanged is emitted by the debounce queue when its busy flag
// changes.
type FilteringChanged struct {
	Active bool
}

func (Mount) intent()            {}
func (SetFilterValue) intent()   {}
func (SetFilterType) intent()    {}
func (RemoveFilterChip) intent() {}
func (ClearAllFilters) intent()  {}
func (Paginate) intent()         {}
func (FetchSettled) intent()     {}
func (FilteringChanged) intent() {}

// EffectKind says what the caller must do after a transition.
type EffectKind int

const (
	// EffectNone requires no side effect.
	EffectNone EffectKind = iota
	// EffectFetch dispatches Query immediately.
	EffectFetch
	// EffectDebounce schedules Query on the debounce queue.
	EffectDebounce
)

// Effect is the side effect a transition asks for.
type Effect struct {
	Kind  EffectKind
	Query Query
}

// Reduce computes the next state for an intent. It has no side effects:
// the returned Effect is for the caller to carry out. Intents that fail
// their precondition return the state unchanged with EffectNone.
func Reduce(schema Schema, s State, in Intent) (State, Effect) {
	s = s.Clone()
	none := Effect{Kind: EffectNone}

	switch in := in.(type) {
	case Mount:
		if s.Initialized {
			return s, none
		}
		s.Initialized = true
		s.fetches++
		s.IsFetching = true
		return s, Effect{Kind: EffectFetch, Query: s.Query.Clone()}

	case SetFilterValue:
		field, ok := schema.Field(s.ActiveField)
		if !ok {
			return s, none
		}
		s.Query.Filters[field.Name] = in.Value.coerce(field.Kind)
		// A narrower result set may not reach the previous offset.
		s.Query.Pagination.Offset = 0
		return s, Effect{Kind: EffectDebounce, Query: s.Query.Clone()}

	case SetFilterType:
		if !schema.Has(in.Field) {
			return s, none
		}
		s.ActiveField = in.Field
		return s, none

	case RemoveFilterChip:
		field, ok := schema.Field(in.Field)
		if !ok {
			return s, none
		}
		cur := s.Query.Filters[field.Name]
		if field.Kind == KindMulti {
			i := slices.Index(cur.Values, in.Value)
			if i < 0 {
				return s, none
			}
			rest := slices.Delete(slices.Clone(cur.Values), i, i+1)
			if len(rest) == 0 {
				rest = nil
			}
			s.Query.Filters[field.Name] = Value{Values: rest}
		} else {
			if cur.Text == "" {
				return s, none
			}
			s.Query.Filters[field.Name] = Value{}
		}
		return s, Effect{Kind: EffectDebounce, Query: s.Query.Clone()}

	case ClearAllFilters:
		s.Query.Filters = schema.Defaults()
		s.Query.Pagination.Offset = 0
		return s, Effect{Kind: EffectDebounce, Query: s.Query.Clone()}

	case Paginate:
		s.Query.Pagination = in.Pagination.normalize(s.Query.Pagination.Limit)
		s.fetches++
		s.IsFetching = true
		return s, Effect{Kind: EffectFetch, Query: s.Query.Clone()}

	case FetchSettled:
		if s.fetches > 0 {
			s.fetches--
		}
		s.IsFetching = s.fetches > 0
		return s, none

	case FilteringChanged:
		s.IsFiltering = in.Active
		return s, none
	}

	return s, none
}
