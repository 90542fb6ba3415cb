package tui

import (
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

// column is one table column. A zero width takes the remaining space.
type column struct {
	title string
	width int
}

// pane is one tab of the TUI: a list controller plus the cursor and
// scroll position of its table.
type pane interface {
	view() string
	title() string
	controller() controls
	columns() []column
	cells() [][]string
	meta() listctl.Meta
	cursorPos() int
	setCursor(int)
	scroll() int
	setScroll(int)
}

// controls is the type-independent surface of a listctl.Controller.
type controls interface {
	Mount()
	SetFilterValue(listctl.Value)
	SetFilterType(string) bool
	RemoveFilterChip(field, value string)
	ClearAllFilters()
	Refresh()
	NextPage() bool
	PrevPage() bool
	FlushFilters() bool
	State() listctl.State
	Schema() listctl.Schema
	Chips() []listctl.Chip
	EmptyState() listctl.EmptyState
	Changes() <-chan struct{}
	Close()
}

// listPane adapts a typed controller to pane.
type listPane[T, R any] struct {
	name   string
	label  string
	ctl    *listctl.Controller[T, R]
	cols   []column
	render func(R) []string

	cursor int
	offset int
}

func (p *listPane[T, R]) view() string { return p.name }
func (p *listPane[T, R]) title() string { return p.label }
func (p *listPane[T, R]) controller() controls { return p.ctl }
func (p *listPane[T, R]) columns() []column { return p.cols }
func (p *listPane[T, R]) meta() listctl.Meta { return p.ctl.Result().Meta }
func (p *listPane[T, R]) cursorPos() int { return p.cursor }
func (p *listPane[T, R]) setCursor(i int) { p.cursor = i }
func (p *listPane[T, R]) scroll() int { return p.offset }
func (p *listPane[T, R]) setScroll(i int) { p.offset = i }

func (p *listPane[T, R]) cells() [][]string {
	rows := p.ctl.Rows()
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = p.render(r)
	}
	return out
}

// selected returns the row under the cursor.
func (p *listPane[T, R]) selected() (R, bool) {
	rows := p.ctl.Rows()
	if p.cursor < 0 || p.cursor >= len(rows) {
		var zero R
		return zero, false
	}
	return rows[p.cursor], true
}

func orderColumns() []column {
	return []column{
		{title: "Name", width: 0},
		{title: "State", width: 18},
		{title: "Owner", width: 16},
		{title: "Platform", width: 18},
		{title: "Created", width: 17},
	}
}

func orderCells(r catalog.OrderRow) []string {
	return []string{
		r.Name,
		catalog.StateLabel(r.State),
		r.Owner,
		r.PlatformName,
		formatTime(r.CreatedAt),
	}
}

func portfolioColumns() []column {
	return []column{
		{title: "Name", width: 28},
		{title: "Owner", width: 16},
		{title: "Description", width: 0},
		{title: "Created", width: 17},
	}
}

func portfolioCells(p catalog.Portfolio) []string {
	return []string{p.Name, p.Owner, p.Description, formatTime(p.CreatedAt)}
}

func portfolioItemColumns() []column {
	return []column{
		{title: "Name", width: 28},
		{title: "Portfolio", width: 16},
		{title: "Platform", width: 18},
		{title: "Description", width: 0},
	}
}

func portfolioItemCells(it catalog.PortfolioItemRow) []string {
	return []string{it.Name, it.PortfolioID, it.PlatformName, it.Description}
}
