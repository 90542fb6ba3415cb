package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/wesm/catalogview/internal/listctl"
)

func TestEnricher_Order(t *testing.T) {
	e := NewEnricher("https://catalog.example.com/api/catalog/v1/", false)
	e.SetPortfolioItems([]PortfolioItem{
		{ID: "11", Name: "Web server", PortfolioID: "3", ServiceOfferingSourceRef: "7"},
	})
	e.SetPlatforms([]Platform{{ID: "7", Name: "Tower"}})

	tests := []struct {
		name  string
		order Order
		want  OrderRow
	}{
		{
			name: "matching portfolio item",
			order: Order{ID: "100", OrderItems: []OrderItem{
				{ID: "1", PortfolioItemID: "11"},
			}},
			want: OrderRow{
				Name:         "Web server",
				IconURL:      "https://catalog.example.com/api/catalog/v1/portfolio_items/11/icon",
				PlatformID:   "7",
				PlatformName: "Tower",
				PortfolioID:  "3",
			},
		},
		{
			name: "unknown portfolio item",
			order: Order{ID: "101", OrderItems: []OrderItem{
				{ID: "2", PortfolioItemID: "99"},
			}},
			want: OrderRow{
				Name:    "Order 101",
				IconURL: "https://catalog.example.com/api/catalog/v1/portfolio_items/99/icon",
			},
		},
		{
			name:  "no order items",
			order: Order{ID: "102"},
			want:  OrderRow{Name: "Order 102"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Order(tt.order)
			tt.want.Order = tt.order
			if got.Name != tt.want.Name || got.IconURL != tt.want.IconURL ||
				got.PlatformID != tt.want.PlatformID || got.PlatformName != tt.want.PlatformName ||
				got.PortfolioID != tt.want.PortfolioID {
				t.Errorf("Order() = %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestEnricher_Standalone(t *testing.T) {
	e := NewEnricher("", true)
	// The loaded item must be ignored in favour of the embedded one.
	e.SetPortfolioItems([]PortfolioItem{
		{ID: "11", Name: "Web server", PortfolioID: "3", ServiceOfferingSourceRef: "7"},
	})

	order := Order{
		ID:         "200",
		OrderItems: []OrderItem{{PortfolioItemID: "11"}},
		ExtraData: &OrderExtra{OrderItems: []OrderItem{{
			ExtraData: &OrderItemExtra{PortfolioItem: &PortfolioItem{
				PortfolioID:              "30",
				ServiceOfferingSourceRef: "70",
			}},
		}}},
	}
	row := e.Order(order)
	if row.PlatformID != "70" || row.PortfolioID != "30" {
		t.Errorf("standalone ids = %q/%q, want 70/30", row.PlatformID, row.PortfolioID)
	}
	if row.Name != "Web server" {
		t.Errorf("name = %q, want Web server", row.Name)
	}
	if row.IconURL != "" {
		t.Errorf("icon without api base = %q, want empty", row.IconURL)
	}

	bare := e.Order(Order{ID: "201"})
	if bare.PlatformID != "" || bare.PortfolioID != "" {
		t.Errorf("order without extra data got ids %q/%q", bare.PlatformID, bare.PortfolioID)
	}
}

type fakeSource struct {
	Source
	platforms    []Platform
	items        []PortfolioItem
	platformsErr error
}

func (f *fakeSource) ListPlatforms(context.Context) ([]Platform, error) {
	return f.platforms, f.platformsErr
}

func (f *fakeSource) ListPortfolioItems(_ context.Context, q listctl.Query) (listctl.ResultSet[PortfolioItem], error) {
	start := min(q.Pagination.Offset, len(f.items))
	end := min(start+q.Pagination.Limit, len(f.items))
	return listctl.ResultSet[PortfolioItem]{
		Items: f.items[start:end],
		Meta:  listctl.Meta{Count: len(f.items)},
	}, nil
}

func TestEnricher_Preloads(t *testing.T) {
	src := &fakeSource{
		platforms: []Platform{{ID: "7", Name: "Tower"}},
		items: []PortfolioItem{
			{ID: "1", Name: "One"},
			{ID: "2", Name: "Two"},
			{ID: "3", Name: "Three", ServiceOfferingSourceRef: "7"},
		},
	}
	e := NewEnricher("", false)
	for _, preload := range e.Preloads(src, 2) {
		if err := preload(context.Background()); err != nil {
			t.Fatalf("preload: %v", err)
		}
	}

	row := e.Order(Order{ID: "9", OrderItems: []OrderItem{{PortfolioItemID: "3"}}})
	if row.Name != "Three" || row.PlatformName != "Tower" {
		t.Errorf("row after preload = %+v", row)
	}

	src.platformsErr = errors.New("unavailable")
	if err := e.Preloads(src, 2)[0](context.Background()); err == nil {
		t.Error("expected platforms preload error")
	}
}

func TestEnricher_PortfolioItem(t *testing.T) {
	e := NewEnricher("", false)
	known := PortfolioItem{ID: "3", Name: "Three", ServiceOfferingSourceRef: "7"}
	unknown := PortfolioItem{ID: "4", Name: "Four", ServiceOfferingSourceRef: "8"}

	if got := e.PortfolioItem(known).PlatformName; got != "7" {
		t.Errorf("before platforms load = %q, want the id", got)
	}

	src := &fakeSource{platforms: []Platform{{ID: "7", Name: "Tower"}}}
	if err := e.PlatformsPreload(src)(context.Background()); err != nil {
		t.Fatalf("PlatformsPreload: %v", err)
	}
	if got := e.PortfolioItem(known); got.PlatformName != "Tower" || got.Name != "Three" {
		t.Errorf("known platform = %+v", got)
	}
	if got := e.PortfolioItem(unknown).PlatformName; got != "8" {
		t.Errorf("unknown platform = %q, want the id", got)
	}
}
