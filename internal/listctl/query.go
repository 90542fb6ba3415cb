package listctl

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 50

// Pagination selects one page of a list.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultPagination returns the first page at the default page size.
func DefaultPagination() Pagination {
	return Pagination{Limit: DefaultLimit}
}

// normalize clamps the pagination into a valid range, falling back to
// fallbackLimit for a non-positive limit.
func (p Pagination) normalize(fallbackLimit int) Pagination {
	if p.Limit <= 0 {
		p.Limit = fallbackLimit
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Query is the durable description of what a list view shows.
type Query struct {
	Filters    Filters    `json:"filters"`
	Pagination Pagination `json:"pagination"`
}

// Clone returns a deep copy of the query.
func (q Query) Clone() Query {
	return Query{Filters: q.Filters.Clone(), Pagination: q.Pagination}
}

// Meta describes the page a ResultSet holds.
type Meta struct {
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	// NoDataAtAll is true when the collection has no records at all,
	// as opposed to no records matching the current filters.
	NoDataAtAll bool `json:"no_data,omitempty"`
}

// HasNextPage reports whether records exist past this page.
func (m Meta) HasNextPage() bool {
	return m.Limit > 0 && m.Offset+m.Limit < m.Count
}

// HasPrevPage reports whether this page starts after the first record.
func (m Meta) HasPrevPage() bool {
	return m.Offset > 0
}

// Page returns the 1-based page number and total page count.
func (m Meta) Page() (page, pages int) {
	if m.Limit <= 0 {
		return 1, 1
	}
	page = m.Offset/m.Limit + 1
	pages = (m.Count + m.Limit - 1) / m.Limit
	if pages < 1 {
		pages = 1
	}
	return page, pages
}

// ResultSet is the last successfully fetched page of a list.
type ResultSet[T any] struct {
	Items []T `json:"data"`
	Meta  Meta `json:"meta"`
}

// Chip is one removable token representing an active filter value.
type Chip struct {
	Field string
	Label string // Field label for display
	Value string
}

// ChipsFor lists the active filter values of filters in schema order:
// one chip per selected multi value and one per non-empty scalar.
func ChipsFor(schema Schema, filters Filters) []Chip {
	var chips []Chip
	for _, field := range schema.fields {
		label := field.Label
		if label == "" {
			label = field.Name
		}
		v := filters[field.Name]
		if field.Kind == KindMulti {
			for _, s := range v.Values {
				chips = append(chips, Chip{Field: field.Name, Label: label, Value: s})
			}
			continue
		}
		if v.Text != "" {
			chips = append(chips, Chip{Field: field.Name, Label: label, Value: v.Text})
		}
	}
	return chips
}
