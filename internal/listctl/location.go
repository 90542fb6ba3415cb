package listctl

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Seed is a persisted snapshot of one view's query, used once when the
// view is created. Nil fields leave the defaults in place.
type Seed struct {
	Filters    Filters     `json:"filters,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Location holds the seeds of several views keyed by view name. It
// round-trips through a URL-safe token so a view can be shared or
// reopened.
type Location map[string]Seed

// ParseLocation decodes a token produced by Location.Encode. A leading
// '#' is ignored. An empty token yields an empty Location.
func ParseLocation(token string) (Location, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "#")
	if token == "" {
		return Location{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode view token: %w", err)
	}
	var loc Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("parse view token: %w", err)
	}
	if loc == nil {
		loc = Location{}
	}
	return loc, nil
}

// Encode returns the token form of the location.
func (l Location) Encode() string {
	raw, err := json.Marshal(l)
	if err != nil {
		// Location holds only strings and ints.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Seed returns the seed stored for view.
func (l Location) Seed(view string) (Seed, bool) {
	s, ok := l[view]
	return s, ok
}

// Set stores the query of view, replacing any previous seed.
func (l Location) Set(view string, q Query) {
	p := q.Pagination
	l[view] = Seed{Filters: compactFilters(q.Filters), Pagination: &p}
}

// compactFilters drops empty values to keep tokens short.
func compactFilters(f Filters) Filters {
	out := Filters{}
	for k, v := range f {
		if !v.IsEmpty() {
			out[k] = v
		}
	}
	return out
}
