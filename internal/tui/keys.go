package tui

import (
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/catalogview/internal/listctl"
)

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.modal != modalNone {
		return m.handleModalKeys(msg)
	}
	if m.filtering {
		return m.handleFilterInputKeys(msg)
	}
	return m.handleListKeys(msg)
}

// handleFilterInputKeys edits the active scalar filter. Every edit is
// forwarded to the controller, which debounces the fetch.
func (m Model) handleFilterInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctl := m.current().controller()
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		ctl.FlushFilters()
		return m, m.startSpinner()
	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}

	before := m.filterInput.Value()
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if v := m.filterInput.Value(); v != before {
		ctl.SetFilterValue(listctl.Text(v))
	}
	return m, tea.Batch(cmd, m.startSpinner())
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.current()
	ctl := p.controller()
	rows := len(p.cells())

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.modal = modalHelp
		return m, nil

	// Views
	case "tab":
		return m.switchPane((m.active + 1) % len(m.panes))
	case "shift+tab":
		return m.switchPane((m.active + len(m.panes) - 1) % len(m.panes))
	case "1", "2", "3":
		return m.switchPane(int(msg.String()[0] - '1'))

	// Cursor
	case "up", "k":
		if p.cursorPos() > 0 {
			p.setCursor(p.cursorPos() - 1)
		}
	case "down", "j":
		if p.cursorPos() < rows-1 {
			p.setCursor(p.cursorPos() + 1)
		}
	case "home", "g":
		p.setCursor(0)
	case "end", "G":
		p.setCursor(max(rows-1, 0))

	// Pages
	case "n", "right":
		if ctl.NextPage() {
			p.setCursor(0)
			p.setScroll(0)
		}
		return m, m.startSpinner()
	case "p", "left":
		if ctl.PrevPage() {
			p.setCursor(0)
			p.setScroll(0)
		}
		return m, m.startSpinner()
	case "r":
		ctl.Refresh()
		return m, m.startSpinner()

	// Filters
	case "/":
		return m.openFilter()
	case "f":
		fields := ctl.Schema().Fields()
		i := slices.IndexFunc(fields, func(f listctl.Field) bool {
			return f.Name == ctl.State().ActiveField
		})
		ctl.SetFilterType(fields[(i+1)%len(fields)].Name)
	case "x", "backspace":
		chips := ctl.Chips()
		if len(chips) > 0 {
			last := chips[len(chips)-1]
			ctl.RemoveFilterChip(last.Field, last.Value)
			return m, m.startSpinner()
		}
	case "c":
		if len(ctl.Chips()) > 0 {
			ctl.ClearAllFilters()
			return m, m.startSpinner()
		}

	case "y":
		return m.showFlash(listctl.Notification{
			Variant:     listctl.VariantInfo,
			Title:       "View token",
			Description: m.viewToken(),
		})

	// Actions
	case "d":
		var a *pendingAction
		switch p {
		case pane(m.orders):
			a = m.cancelOrderAction()
		case pane(m.portfolios):
			a = m.removePortfolioAction()
		}
		if a != nil {
			return m.confirm(a)
		}
	}

	m.ensureCursorVisible()
	return m, nil
}

// openFilter focuses the filter input for a scalar field or opens the
// option picker for a multi-valued one.
func (m Model) openFilter() (tea.Model, tea.Cmd) {
	ctl := m.current().controller()
	st := ctl.State()
	field, ok := ctl.Schema().Field(st.ActiveField)
	if !ok {
		return m, nil
	}
	if field.Kind == listctl.KindMulti {
		m.modal = modalOptions
		m.modalCursor = 0
		return m, nil
	}
	m.filtering = true
	m.filterInput.SetValue(st.Query.Filters.Text(field.Name))
	m.filterInput.CursorEnd()
	return m, m.filterInput.Focus()
}

func (m Model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalConfirm:
		return m.handleConfirmKeys(msg)
	case modalOptions:
		return m.handleOptionKeys(msg)
	case modalHelp:
		m.modal = modalNone
	}
	return m, nil
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return m.resolvePending(true)
	case "n", "N", "esc", "q":
		return m.resolvePending(false)
	}
	return m, nil
}

// handleOptionKeys toggles values of the active multi-valued filter.
func (m Model) handleOptionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctl := m.current().controller()
	st := ctl.State()
	field, ok := ctl.Schema().Field(st.ActiveField)
	if !ok || len(field.Options) == 0 {
		m.modal = modalNone
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.modalCursor > 0 {
			m.modalCursor--
		}
	case "down", "j":
		if m.modalCursor < len(field.Options)-1 {
			m.modalCursor++
		}
	case " ", "enter":
		ctl.SetFilterValue(listctl.Multi(toggle(st.Query.Filters.Values(field.Name), field.Options[m.modalCursor].Value)...))
		return m, m.startSpinner()
	case "esc", "q", "/":
		m.modal = modalNone
		ctl.FlushFilters()
		return m, m.startSpinner()
	}
	return m, nil
}

// toggle adds v to values or removes it if present.
func toggle(values []string, v string) []string {
	if i := slices.Index(values, v); i >= 0 {
		return slices.Delete(slices.Clone(values), i, i+1)
	}
	return append(slices.Clone(values), v)
}
