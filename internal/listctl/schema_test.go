package listctl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewSchema_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"no fields", nil},
		{"unnamed field", []Field{{Name: ""}}},
		{"duplicate", []Field{{Name: "a"}, {Name: "a", Kind: KindScalar}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSchema(tt.fields...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSchema_Normalize(t *testing.T) {
	got := ordersSchema.Normalize(Filters{
		"state":   Text("Failed"),
		"owner":   Multi("jdoe", "other"),
		"unknown": Text("x"),
	})
	want := Filters{
		"state": Multi("Failed"),
		"owner": Text("jdoe"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}

	empty := ordersSchema.Normalize(nil)
	if len(empty) != 2 || !empty.IsEmpty() {
		t.Errorf("Normalize(nil) = %+v, want every field empty", empty)
	}
}

func TestFilters_CloneIsDeep(t *testing.T) {
	f := Filters{"state": Multi("Completed")}
	c := f.Clone()
	c["state"].Values[0] = "Failed"
	if f.Values("state")[0] != "Completed" {
		t.Error("Clone shares value slices")
	}
	if !f.Equal(Filters{"state": Multi("Completed")}) {
		t.Error("Equal failed on identical filters")
	}
}

func TestChipsFor(t *testing.T) {
	f := Filters{
		"owner": Text("jdoe"),
		"state": Multi("Completed", "Failed"),
	}
	want := []Chip{
		{Field: "state", Label: "State", Value: "Completed"},
		{Field: "state", Label: "State", Value: "Failed"},
		{Field: "owner", Label: "Owner", Value: "jdoe"},
	}
	if diff := cmp.Diff(want, ChipsFor(ordersSchema, f)); diff != "" {
		t.Errorf("ChipsFor mismatch (-want +got):\n%s", diff)
	}
}

func TestMeta_Paging(t *testing.T) {
	tests := []struct {
		meta      Meta
		next      bool
		prev      bool
		page, max int
	}{
		{Meta{Count: 0, Limit: 50}, false, false, 1, 1},
		{Meta{Count: 120, Limit: 50}, true, false, 1, 3},
		{Meta{Count: 120, Limit: 50, Offset: 50}, true, true, 2, 3},
		{Meta{Count: 120, Limit: 50, Offset: 100}, false, true, 3, 3},
	}
	for _, tt := range tests {
		if got := tt.meta.HasNextPage(); got != tt.next {
			t.Errorf("%+v HasNextPage = %v", tt.meta, got)
		}
		if got := tt.meta.HasPrevPage(); got != tt.prev {
			t.Errorf("%+v HasPrevPage = %v", tt.meta, got)
		}
		page, pages := tt.meta.Page()
		if page != tt.page || pages != tt.max {
			t.Errorf("%+v Page = %d/%d, want %d/%d", tt.meta, page, pages, tt.page, tt.max)
		}
	}
}

func TestSelectEmptyState(t *testing.T) {
	tests := []struct {
		name  string
		meta  Meta
		items int
		busy  bool
		want  EmptyState
	}{
		{"has rows", Meta{Count: 3}, 3, false, EmptyNone},
		{"loading", Meta{}, 0, true, EmptyNone},
		{"no data at all", Meta{NoDataAtAll: true}, 0, false, EmptyNoData},
		{"no matches", Meta{}, 0, false, EmptyNoResults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectEmptyState(tt.meta, tt.items, tt.busy); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if EmptyNoData.CanClearFilters() {
		t.Error("no-data state offers no clear action")
	}
}

func TestLocation_RoundTrip(t *testing.T) {
	loc := Location{}
	loc.Set("orders", Query{
		Filters:    Filters{"state": Multi("Failed"), "owner": {}},
		Pagination: Pagination{Limit: 10, Offset: 20},
	})

	parsed, err := ParseLocation("#" + loc.Encode())
	if err != nil {
		t.Fatalf("ParseLocation: %v", err)
	}
	seed, ok := parsed.Seed("orders")
	if !ok {
		t.Fatal("orders seed missing")
	}
	if diff := cmp.Diff(Filters{"state": Multi("Failed")}, seed.Filters); diff != "" {
		t.Errorf("seed filters (-want +got):\n%s", diff)
	}
	if seed.Pagination == nil || *seed.Pagination != (Pagination{Limit: 10, Offset: 20}) {
		t.Errorf("seed pagination = %+v", seed.Pagination)
	}

	if _, ok := parsed.Seed("portfolios"); ok {
		t.Error("unexpected portfolios seed")
	}
}

func TestParseLocation_Invalid(t *testing.T) {
	if loc, err := ParseLocation(""); err != nil || len(loc) != 0 {
		t.Errorf("empty token: %v, %v", loc, err)
	}
	if _, err := ParseLocation("!!!"); err == nil {
		t.Error("expected decode error")
	}
	if _, err := ParseLocation("bm90LWpzb24"); err == nil {
		t.Error("expected parse error for non-JSON payload")
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	s := NewMemoryStore[int]()
	ch, unsubscribe := s.Subscribe()

	s.Replace(ResultSet[int]{Items: []int{1}})
	s.Replace(ResultSet[int]{Items: []int{2}})

	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-ch:
		t.Fatal("signals should coalesce")
	default:
	}
	if got := s.Get().Items; len(got) != 1 || got[0] != 2 {
		t.Errorf("Get = %v, want [2]", got)
	}

	unsubscribe()
	s.Replace(ResultSet[int]{})
	select {
	case <-ch:
		t.Error("signal after unsubscribe")
	default:
	}
}
