package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	chipStyle = lipgloss.NewStyle().
			Background(bgCursor).
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Background(bgBase)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true)

	flashStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}).
			Background(bgBase)

	successStyle = flashStyle.
			Foreground(lipgloss.AdaptiveColor{Light: "#006600", Dark: "#66cc66"})
)

// fixedLines is the number of screen lines outside the table body.
const fixedLines = 7

func variantStyle(v listctl.Variant) lipgloss.Style {
	switch v {
	case listctl.VariantDanger:
		return errorStyle
	case listctl.VariantSuccess:
		return successStyle
	default:
		return flashStyle
	}
}

func (m Model) renderView() string {
	p := m.current()
	lines := []string{
		m.titleBar(),
		m.filterLine(p),
		m.chipsLine(p),
	}
	lines = append(lines, m.tableView(p)...)
	lines = append(lines, m.infoLine(p), m.footerView())
	return strings.Join(lines, "\n")
}

func (m Model) titleBar() string {
	title := "catalogview"
	if m.version != "" {
		title += " " + m.version
	}
	tabs := make([]string, len(m.panes))
	for i, p := range m.panes {
		if i == m.active {
			tabs[i] = fmt.Sprintf("[%d %s]", i+1, p.title())
		} else {
			tabs[i] = fmt.Sprintf(" %d %s ", i+1, p.title())
		}
	}
	return titleBarStyle.Render(padRight(title+" │ "+strings.Join(tabs, "  "), m.width-2))
}

// filterLine shows the active filter field and its value or the input
// being edited.
func (m Model) filterLine(p pane) string {
	ctl := p.controller()
	st := ctl.State()
	field, ok := ctl.Schema().Field(st.ActiveField)
	if !ok {
		return statsStyle.Render(padRight("", m.width-2))
	}

	label := "Filter by " + fieldLabel(field) + ": "
	var value string
	switch {
	case m.filtering:
		value = m.filterInput.View()
	case field.Kind == listctl.KindMulti:
		vals := st.Query.Filters.Values(field.Name)
		labels := make([]string, len(vals))
		for i, v := range vals {
			labels[i] = optionLabel(field, v)
		}
		value = strings.Join(labels, ", ")
		if value == "" {
			value = "(any)"
		}
	default:
		value = st.Query.Filters.Text(field.Name)
	}
	return statsStyle.Render(padRight(label+value, m.width-2))
}

func (m Model) chipsLine(p pane) string {
	ctl := p.controller()
	chips := ctl.Chips()
	if len(chips) == 0 {
		return statsStyle.Render(padRight("No filters", m.width-2))
	}
	parts := make([]string, len(chips))
	for i, c := range chips {
		value := c.Value
		if f, ok := ctl.Schema().Field(c.Field); ok {
			value = optionLabel(f, c.Value)
		}
		parts[i] = chipStyle.Render(c.Label + ": " + value + " ×")
	}
	return padRight(" "+strings.Join(parts, " "), m.width)
}

// tableView renders the header, separator and body of the current view,
// always returning exactly visibleRows body lines.
func (m Model) tableView(p pane) []string {
	cols := p.columns()
	widths := columnWidths(cols, m.width-2)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = padRight(c.title, widths[i])
	}
	lines := []string{
		tableHeaderStyle.Render(padRight(" "+strings.Join(header, " "), m.width)),
		separatorStyle.Render(strings.Repeat("─", m.width)),
	}

	visible := m.visibleRows()
	rows := p.cells()
	if len(rows) == 0 {
		return append(lines, m.fillBody(m.emptyBody(p), visible)...)
	}

	var body []string
	end := min(p.scroll()+visible, len(rows))
	for i := p.scroll(); i < end; i++ {
		cells := make([]string, len(rows[i]))
		for j, c := range rows[i] {
			if j < len(widths) {
				cells[j] = padRight(truncateRunes(c, widths[j]), widths[j])
			}
		}
		line := padRight(" "+strings.Join(cells, " "), m.width)
		switch {
		case i == p.cursorPos():
			line = cursorRowStyle.Render(line)
		case i%2 == 1:
			line = altRowStyle.Render(line)
		default:
			line = normalRowStyle.Render(line)
		}
		body = append(body, line)
	}
	return append(lines, m.fillBody(body, visible)...)
}

// emptyBody explains why the current view has no rows.
func (m Model) emptyBody(p pane) []string {
	st := p.controller().State()
	if !st.Initialized || st.Busy() {
		return []string{normalRowStyle.Render(padRight(" Loading...", m.width))}
	}
	empty := p.controller().EmptyState()
	title, body := catalog.EmptyMessage(p.view(), empty)
	if title == "" {
		return nil
	}
	out := []string{
		normalRowStyle.Render(strings.Repeat(" ", m.width)),
		errorStyle.Render(padRight(" "+title, m.width)),
		normalRowStyle.Render(padRight(" "+body, m.width)),
	}
	if empty.CanClearFilters() {
		out = append(out, normalRowStyle.Render(padRight(" Press c to clear all filters.", m.width)))
	}
	return out
}

func (m Model) fillBody(body []string, n int) []string {
	if len(body) > n {
		return body[:n]
	}
	blank := normalRowStyle.Render(strings.Repeat(" ", m.width))
	for len(body) < n {
		body = append(body, blank)
	}
	return body
}

// infoLine shows the page position on the left and the spinner or the
// latest notification on the right.
func (m Model) infoLine(p pane) string {
	meta := p.meta()
	page, pages := meta.Page()
	left := statsStyle.Render(fmt.Sprintf("Page %d/%d · %d results", page, pages, meta.Count))

	var right string
	switch {
	case m.flashMessage != "":
		right = variantStyle(m.flashVariant).Render(truncateRunes(m.flashMessage, max(m.width-lipgloss.Width(left)-2, 0)) + " ")
	case m.spinnerActive && m.busy():
		right = spinnerStyle.Render(spinnerFrames[m.spinnerFrame] + " Loading ")
	}
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) footerView() string {
	keys := []string{"↑/k", "↓/j", "n/p page", "/ filter", "f field", "x chip", "c clear", "r reload"}
	if m.current() == pane(m.orders) || m.current() == pane(m.portfolios) {
		keys = append(keys, "d delete")
	}
	keys = append(keys, "tab view", "? help", "q quit")
	if m.filtering {
		keys = []string{"Enter apply", "Esc done"}
	}
	return footerStyle.Render(padRight(strings.Join(keys, " │ "), m.width-2))
}

func fieldLabel(f listctl.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func optionLabel(f listctl.Field, value string) string {
	i := slices.IndexFunc(f.Options, func(o listctl.Option) bool { return o.Value == value })
	if i < 0 || f.Options[i].Label == "" {
		return value
	}
	return f.Options[i].Label
}

var helpLines = []string{
	"Keyboard Shortcuts",
	"",
	"Navigation",
	"  ↑/k ↓/j      Move cursor",
	"  g / G        First / last row",
	"  n / p        Next / previous page",
	"  tab, 1-3     Switch view",
	"",
	"Filters",
	"  /            Edit the active filter",
	"  f            Cycle the active filter field",
	"  x            Remove the last filter chip",
	"  c            Clear all filters",
	"",
	"Other",
	"  r            Reload the current page",
	"  d            Cancel order / remove portfolio",
	"  y            Show a token for the current view",
	"  q            Quit",
	"",
	"Press any key to close",
}

func (m Model) renderHelpModal() string {
	rendered := slices.Clone(helpLines)
	rendered[0] = modalTitleStyle.Render(rendered[0])
	return strings.Join(rendered, "\n")
}

func (m Model) renderConfirmModal() string {
	if m.pending == nil {
		return ""
	}
	return modalTitleStyle.Render("Confirm") + "\n\n" +
		m.pending.prompt + "\n\n" +
		"[Y] Yes  [N] No"
}

// renderOptionsModal lists the options of the active multi-valued
// filter with their selection state.
func (m Model) renderOptionsModal() string {
	ctl := m.current().controller()
	st := ctl.State()
	field, ok := ctl.Schema().Field(st.ActiveField)
	if !ok {
		return ""
	}
	selected := st.Query.Filters.Values(field.Name)

	var sb strings.Builder
	sb.WriteString(modalTitleStyle.Render("Filter by " + fieldLabel(field)))
	sb.WriteString("\n\n")
	for i, o := range field.Options {
		cursor := " "
		if i == m.modalCursor {
			cursor = "▶"
		}
		checkbox := "☐"
		if slices.Contains(selected, o.Value) {
			checkbox = "☑"
		}
		fmt.Fprintf(&sb, "%s %s %s\n", cursor, checkbox, optionLabel(field, o.Value))
	}
	sb.WriteString("\n[↑/↓] Navigate  [Space] Toggle  [Esc] Done")
	return sb.String()
}

func (m Model) overlayModal(background string) string {
	var modalContent string

	switch m.modal {
	case modalConfirm:
		modalContent = m.renderConfirmModal()
	case modalOptions:
		modalContent = m.renderOptionsModal()
	case modalHelp:
		modalContent = m.renderHelpModal()
	}

	if modalContent == "" {
		return background
	}

	modal := modalStyle.Render(modalContent)

	bgLines := strings.Split(background, "\n")
	modalLines := strings.Split(modal, "\n")

	startLine := max((len(bgLines)-len(modalLines))/2, 0)
	modalWidth := lipgloss.Width(modal)
	leftPadding := max((m.width-modalWidth)/2, 0)

	// Overlay modal onto background, preserving background where modal doesn't cover
	for i, modalLine := range modalLines {
		lineIdx := startLine + i
		if lineIdx >= len(bgLines) {
			break
		}
		bgLine := bgLines[lineIdx]
		bgWidth := lipgloss.Width(bgLine)

		var composite strings.Builder
		if leftPadding > 0 {
			leftBg := truncateToWidth(bgLine, leftPadding)
			composite.WriteString(leftBg)
			if w := lipgloss.Width(leftBg); w < leftPadding {
				composite.WriteString(strings.Repeat(" ", leftPadding-w))
			}
		}
		composite.WriteString(modalLine)
		if rightStart := leftPadding + modalWidth; rightStart < bgWidth {
			composite.WriteString(skipToWidth(bgLine, rightStart))
		}
		bgLines[lineIdx] = composite.String()
	}

	return strings.Join(bgLines, "\n")
}
