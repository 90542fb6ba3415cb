package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

// Compile-time check that Store implements catalog.Backend.
var _ catalog.Backend = (*Store)(nil)

// where accumulates SQL conditions and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) in(col string, vals []string) {
	if len(vals) == 0 {
		return
	}
	w.clauses = append(w.clauses, col+" IN ("+strings.TrimSuffix(strings.Repeat("?,", len(vals)), ",")+")")
	for _, v := range vals {
		w.args = append(w.args, v)
	}
}

func (w *where) eq(col, v string) {
	if v == "" {
		return
	}
	w.clauses = append(w.clauses, col+" = ?")
	w.args = append(w.args, v)
}

// containsFold matches a case-insensitive substring. SQLite LIKE is
// case-insensitive for ASCII.
func (w *where) containsFold(col, v string) {
	if v == "" {
		return
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	w.clauses = append(w.clauses, col+` LIKE ? ESCAPE '\'`)
	w.args = append(w.args, "%"+r.Replace(v)+"%")
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// listPage runs a count and a paged select over table and fills Meta,
// including NoDataAtAll when the table is empty.
func (s *Store) listPage(ctx context.Context, table, cols, orderBy string, w *where, p listctl.Pagination, scan func(*sql.Rows) error) (listctl.Meta, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = listctl.DefaultLimit
	}
	meta := listctl.Meta{Limit: limit, Offset: max(p.Offset, 0)}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+w.String(), w.args...).Scan(&meta.Count); err != nil {
		return meta, fmt.Errorf("count %s: %w", table, err)
	}
	if meta.Count == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+")").Scan(&exists)
		if err != nil {
			return meta, fmt.Errorf("check %s for records: %w", table, err)
		}
		meta.NoDataAtAll = exists == 0
		return meta, nil
	}

	q := "SELECT " + cols + " FROM " + table + w.String() + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args := append(append([]any{}, w.args...), limit, meta.Offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return meta, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return meta, fmt.Errorf("scan %s: %w", table, err)
		}
	}
	return meta, rows.Err()
}

const orderCols = "id, state, owner, created_at, order_request_sent_at, extra_data"

func scanOrder(rows interface{ Scan(...any) error }) (catalog.Order, error) {
	var (
		o         catalog.Order
		createdAt string
		sentAt    sql.NullString
		extra     sql.NullString
	)
	if err := rows.Scan(&o.ID, &o.State, &o.Owner, &createdAt, &sentAt, &extra); err != nil {
		return o, err
	}
	o.CreatedAt = parseTime(createdAt)
	if sentAt.Valid {
		t := parseTime(sentAt.String)
		o.OrderRequestSentAt = &t
	}
	if extra.Valid && extra.String != "" {
		o.ExtraData = &catalog.OrderExtra{}
		if err := json.Unmarshal([]byte(extra.String), o.ExtraData); err != nil {
			return o, fmt.Errorf("decode extra_data of order %s: %w", o.ID, err)
		}
	}
	return o, nil
}

// ListOrders returns a page of orders, newest first, with order items.
func (s *Store) ListOrders(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.Order], error) {
	w := &where{}
	w.in("state", q.Filters[catalog.FieldState].Values)
	w.containsFold("owner", q.Filters[catalog.FieldOwner].Text)

	var orders []catalog.Order
	meta, err := s.listPage(ctx, "orders", orderCols, "created_at DESC, id", w, q.Pagination, func(rows *sql.Rows) error {
		o, err := scanOrder(rows)
		if err != nil {
			return err
		}
		orders = append(orders, o)
		return nil
	})
	if err != nil {
		return listctl.ResultSet[catalog.Order]{}, err
	}
	if err := s.attachOrderItems(ctx, orders); err != nil {
		return listctl.ResultSet[catalog.Order]{}, err
	}
	return listctl.ResultSet[catalog.Order]{Items: orders, Meta: meta}, nil
}

func (s *Store) attachOrderItems(ctx context.Context, orders []catalog.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}
	err := queryInChunks(ctx, s.db, ids,
		"SELECT id, order_id, portfolio_item_id, state, extra_data FROM order_items WHERE order_id IN (%s) ORDER BY id",
		func(rows *sql.Rows) error {
			var (
				it    catalog.OrderItem
				extra sql.NullString
			)
			if err := rows.Scan(&it.ID, &it.OrderID, &it.PortfolioItemID, &it.State, &extra); err != nil {
				return err
			}
			if extra.Valid && extra.String != "" {
				it.ExtraData = &catalog.OrderItemExtra{}
				if err := json.Unmarshal([]byte(extra.String), it.ExtraData); err != nil {
					return fmt.Errorf("decode extra_data of order item %s: %w", it.ID, err)
				}
			}
			if i, ok := index[it.OrderID]; ok {
				orders[i].OrderItems = append(orders[i].OrderItems, it)
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	return nil
}

// GetOrder returns one order with its order items.
func (s *Store) GetOrder(ctx context.Context, id string) (catalog.Order, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+orderCols+" FROM orders WHERE id = ?", id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Order{}, fmt.Errorf("order %s: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	orders := []catalog.Order{o}
	if err := s.attachOrderItems(ctx, orders); err != nil {
		return catalog.Order{}, err
	}
	return orders[0], nil
}

// ListPortfolios returns a page of portfolios sorted by name.
func (s *Store) ListPortfolios(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.Portfolio], error) {
	w := &where{}
	w.containsFold("name", q.Filters[catalog.FieldName].Text)

	var out []catalog.Portfolio
	meta, err := s.listPage(ctx, "portfolios", "id, name, description, owner, created_at", "name, id", w, q.Pagination, func(rows *sql.Rows) error {
		var (
			p         catalog.Portfolio
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Owner, &createdAt); err != nil {
			return err
		}
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
		return nil
	})
	if err != nil {
		return listctl.ResultSet[catalog.Portfolio]{}, err
	}
	return listctl.ResultSet[catalog.Portfolio]{Items: out, Meta: meta}, nil
}

// ListPortfolioItems returns a page of portfolio items sorted by name.
func (s *Store) ListPortfolioItems(ctx context.Context, q listctl.Query) (listctl.ResultSet[catalog.PortfolioItem], error) {
	w := &where{}
	w.containsFold("name", q.Filters[catalog.FieldName].Text)
	w.eq("portfolio_id", q.Filters[catalog.FieldPortfolio].Text)

	var out []catalog.PortfolioItem
	meta, err := s.listPage(ctx, "portfolio_items",
		"id, name, description, portfolio_id, service_offering_source_ref, created_at",
		"name, id", w, q.Pagination, func(rows *sql.Rows) error {
			var (
				it        catalog.PortfolioItem
				createdAt string
			)
			if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.PortfolioID, &it.ServiceOfferingSourceRef, &createdAt); err != nil {
				return err
			}
			it.CreatedAt = parseTime(createdAt)
			out = append(out, it)
			return nil
		})
	if err != nil {
		return listctl.ResultSet[catalog.PortfolioItem]{}, err
	}
	return listctl.ResultSet[catalog.PortfolioItem]{Items: out, Meta: meta}, nil
}

// ListPlatforms returns every platform sorted by name.
func (s *Store) ListPlatforms(ctx context.Context) ([]catalog.Platform, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM platforms ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	var out []catalog.Platform
	for rows.Next() {
		var p catalog.Platform
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SubmitOrder is not supported by the mirror.
func (s *Store) SubmitOrder(ctx context.Context, req catalog.OrderRequest) (catalog.Order, error) {
	return catalog.Order{}, fmt.Errorf("submit order: %w", catalog.ErrNotSupported)
}

// CancelOrder is not supported by the mirror.
func (s *Store) CancelOrder(ctx context.Context, id string) (catalog.Order, error) {
	return catalog.Order{}, fmt.Errorf("cancel order: %w", catalog.ErrNotSupported)
}

// RemovePortfolio is not supported by the mirror.
func (s *Store) RemovePortfolio(ctx context.Context, id string) error {
	return fmt.Errorf("remove portfolio: %w", catalog.ErrNotSupported)
}
