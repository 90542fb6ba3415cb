package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/wesm/catalogview/internal/listctl"
)

// APIFilter maps a list filter field to a catalog API filter parameter.
type APIFilter struct {
	Field string // API attribute name
	Op    string // eq or contains_i
}

// API filter tables per collection.
var (
	OrderAPIFilters = map[string]APIFilter{
		FieldState: {Field: "state", Op: "eq"},
		FieldOwner: {Field: "owner", Op: "contains_i"},
	}
	PortfolioAPIFilters = map[string]APIFilter{
		FieldName: {Field: "name", Op: "contains_i"},
	}
	PortfolioItemAPIFilters = map[string]APIFilter{
		FieldName:      {Field: "name", Op: "contains_i"},
		FieldPortfolio: {Field: "portfolio_id", Op: "eq"},
	}
)

// EncodeQuery renders q as catalog API query parameters. Multi-valued
// filters encode as filter[attr][op][]=v once per value, scalars as
// filter[attr][op]=v. Empty filters and fields without an API mapping
// are omitted.
func EncodeQuery(filters map[string]APIFilter, q listctl.Query, sortBy string) url.Values {
	v := url.Values{}
	for name, val := range q.Filters {
		f, ok := filters[name]
		if !ok || val.IsEmpty() {
			continue
		}
		key := "filter[" + f.Field + "][" + f.Op + "]"
		if len(val.Values) > 0 {
			for _, s := range val.Values {
				v.Add(key+"[]", s)
			}
			continue
		}
		v.Set(key, val.Text)
	}
	limit := q.Pagination.Limit
	if limit <= 0 {
		limit = listctl.DefaultLimit
	}
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(max(q.Pagination.Offset, 0)))
	if sortBy != "" {
		v.Set("sort_by", sortBy)
	}
	return v
}

// DecodeQuery is the inverse of EncodeQuery. Unknown parameters are
// ignored and the result is normalised against schema.
func DecodeQuery(schema listctl.Schema, filters map[string]APIFilter, v url.Values) listctl.Query {
	byKey := make(map[string]string, len(filters))
	for name, f := range filters {
		byKey["filter["+f.Field+"]["+f.Op+"]"] = name
	}

	partial := listctl.Filters{}
	for key, vals := range v {
		multi := strings.HasSuffix(key, "[]")
		name, ok := byKey[strings.TrimSuffix(key, "[]")]
		if !ok || len(vals) == 0 {
			continue
		}
		if multi {
			partial[name] = listctl.Multi(vals...)
		} else {
			partial[name] = listctl.Text(vals[0])
		}
	}

	limit, _ := strconv.Atoi(v.Get("limit"))
	offset, _ := strconv.Atoi(v.Get("offset"))
	if limit <= 0 {
		limit = listctl.DefaultLimit
	}
	return listctl.Query{
		Filters:    schema.Normalize(partial),
		Pagination: listctl.Pagination{Limit: limit, Offset: max(offset, 0)},
	}
}

// HasActiveFilters reports whether q filters on any mapped field.
func HasActiveFilters(filters map[string]APIFilter, f listctl.Filters) bool {
	for name, v := range f {
		if _, ok := filters[name]; ok && !v.IsEmpty() {
			return true
		}
	}
	return false
}
