package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/wesm/catalogview/internal/catalog"
)

// Snapshot is a complete copy of a catalog.
type Snapshot struct {
	Orders         []catalog.Order
	Portfolios     []catalog.Portfolio
	PortfolioItems []catalog.PortfolioItem
	Platforms      []catalog.Platform
}

func encodeExtra(v any, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// ReplaceAll swaps the mirror's contents for snap in one transaction.
// Readers see either the old or the new catalog, never a mix.
func (s *Store) ReplaceAll(ctx context.Context, snap Snapshot) error {
	type itemRow struct {
		item  catalog.OrderItem
		extra sql.NullString
	}
	orderExtra := make([]sql.NullString, len(snap.Orders))
	var items []itemRow
	for i, o := range snap.Orders {
		extra, err := encodeExtra(o.ExtraData, o.ExtraData == nil)
		if err != nil {
			return fmt.Errorf("encode extra_data of order %s: %w", o.ID, err)
		}
		orderExtra[i] = extra
		for _, it := range o.OrderItems {
			extra, err := encodeExtra(it.ExtraData, it.ExtraData == nil)
			if err != nil {
				return fmt.Errorf("encode extra_data of order item %s: %w", it.ID, err)
			}
			if it.OrderID == "" {
				it.OrderID = o.ID
			}
			items = append(items, itemRow{item: it, extra: extra})
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"order_items", "orders", "portfolio_items", "portfolios", "platforms"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		if err := insertInChunks(ctx, tx, len(snap.Portfolios), 5,
			"INSERT INTO portfolios (id, name, description, owner, created_at) VALUES ",
			func(i int) []any {
				p := snap.Portfolios[i]
				return []any{p.ID, p.Name, p.Description, p.Owner, formatTime(p.CreatedAt)}
			}); err != nil {
			return fmt.Errorf("insert portfolios: %w", err)
		}

		if err := insertInChunks(ctx, tx, len(snap.PortfolioItems), 6,
			"INSERT INTO portfolio_items (id, name, description, portfolio_id, service_offering_source_ref, created_at) VALUES ",
			func(i int) []any {
				it := snap.PortfolioItems[i]
				return []any{it.ID, it.Name, it.Description, it.PortfolioID, it.ServiceOfferingSourceRef, formatTime(it.CreatedAt)}
			}); err != nil {
			return fmt.Errorf("insert portfolio items: %w", err)
		}

		if err := insertInChunks(ctx, tx, len(snap.Platforms), 2,
			"INSERT INTO platforms (id, name) VALUES ",
			func(i int) []any {
				return []any{snap.Platforms[i].ID, snap.Platforms[i].Name}
			}); err != nil {
			return fmt.Errorf("insert platforms: %w", err)
		}

		if err := insertInChunks(ctx, tx, len(snap.Orders), 6,
			"INSERT INTO orders (id, state, owner, created_at, order_request_sent_at, extra_data) VALUES ",
			func(i int) []any {
				o := snap.Orders[i]
				return []any{o.ID, o.State, o.Owner, formatTime(o.CreatedAt), nullTime(o.OrderRequestSentAt), orderExtra[i]}
			}); err != nil {
			return fmt.Errorf("insert orders: %w", err)
		}

		if err := insertInChunks(ctx, tx, len(items), 5,
			"INSERT INTO order_items (id, order_id, portfolio_item_id, state, extra_data) VALUES ",
			func(i int) []any {
				it := items[i].item
				return []any{it.ID, it.OrderID, it.PortfolioItemID, it.State, items[i].extra}
			}); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
}
