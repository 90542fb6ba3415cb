package listctl

// EmptyState selects which empty-list message a view renders.
type EmptyState int

const (
	// EmptyNone: the list has rows or is still loading.
	EmptyNone EmptyState = iota
	// EmptyNoData: the collection has no records at all.
	EmptyNoData
	// EmptyNoResults: records exist but none match the filters.
	EmptyNoResults
)

// SelectEmptyState picks the empty state for a loaded page. NoDataAtAll
// wins regardless of the active filters.
func SelectEmptyState(meta Meta, items int, busy bool) EmptyState {
	if busy || items > 0 {
		return EmptyNone
	}
	if meta.NoDataAtAll {
		return EmptyNoData
	}
	return EmptyNoResults
}

// CanClearFilters reports whether the empty state offers a clear-filters
// action.
func (e EmptyState) CanClearFilters() bool {
	return e == EmptyNoResults
}
