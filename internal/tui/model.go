// Package tui provides a terminal user interface for browsing a catalog.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/clock"
	"github.com/wesm/catalogview/internal/listctl"
)

// Options configuration for TUI.
type Options struct {
	Version string
	// APIBase is the catalog API root used for icon URLs.
	APIBase    string
	Standalone bool

	PageSize     int
	DebounceWait time.Duration
	DiscardStale bool
	// Location seeds each view's filters and page, e.g. from --view.
	Location listctl.Location

	Clock  clock.Clock
	Logger *slog.Logger
}

// modalType represents the type of modal dialog.
type modalType int

const (
	modalNone modalType = iota
	modalConfirm
	modalOptions
	modalHelp
)

// pendingAction is a destructive action awaiting confirmation.
type pendingAction struct {
	prompt string
	run    func(ctx context.Context, confirmed bool) catalog.Outcome
	// refresh lists the views to reload when the action completes.
	refresh []string
}

// Model is the main TUI model following the Elm architecture.
type Model struct {
	dispatcher *catalog.Dispatcher
	notifier   *listctl.ChanNotifier
	logger     *slog.Logger
	version    string

	orders     *listPane[catalog.Order, catalog.OrderRow]
	portfolios *listPane[catalog.Portfolio, catalog.Portfolio]
	items      *listPane[catalog.PortfolioItem, catalog.PortfolioItemRow]
	panes      []pane
	active     int

	// Filter input; focused while the user edits a scalar filter
	filterInput textinput.Model
	filtering   bool

	// Modal state
	modal       modalType
	modalCursor int
	pending     *pendingAction

	// Flash notification
	flashMessage string
	flashVariant listctl.Variant
	flashSeq     uint64

	spinnerFrame  int
	spinnerActive bool

	// Terminal dimensions
	width  int
	height int

	quitting  bool
	done      chan struct{}
	closeOnce *sync.Once
}

// New creates the TUI model with one list controller per view. Call
// Close when the program exits.
func New(backend catalog.Backend, opts Options) (Model, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = listctl.DefaultLimit
	}
	notifier := listctl.NewChanNotifier(16)

	base := func(view string, schema listctl.Schema) listctl.Options {
		o := listctl.Options{
			Name:         view,
			Schema:       schema,
			Pagination:   listctl.Pagination{Limit: opts.PageSize},
			DebounceWait: opts.DebounceWait,
			DiscardStale: opts.DiscardStale,
			Clock:        opts.Clock,
			Logger:       opts.Logger,
			Notifier:     notifier,
		}
		if seed, ok := opts.Location.Seed(view); ok {
			o.Seed = &seed
		}
		return o
	}

	enricher := catalog.NewEnricher(opts.APIBase, opts.Standalone)
	orderOpts := base(catalog.ViewOrders, catalog.OrdersSchema)
	orderOpts.Preloads = enricher.Preloads(backend, opts.PageSize)
	orders, err := listctl.New(backend.ListOrders, nil, enricher.Order, orderOpts)
	if err != nil {
		return Model{}, fmt.Errorf("orders view: %w", err)
	}
	portfolios, err := listctl.New(backend.ListPortfolios, nil, identity[catalog.Portfolio], base(catalog.ViewPortfolios, catalog.PortfoliosSchema))
	if err != nil {
		orders.Close()
		return Model{}, fmt.Errorf("portfolios view: %w", err)
	}
	itemOpts := base(catalog.ViewPortfolioItems, catalog.PortfolioItemsSchema)
	itemOpts.Preloads = []listctl.Preload{enricher.PlatformsPreload(backend)}
	items, err := listctl.New(backend.ListPortfolioItems, nil, enricher.PortfolioItem, itemOpts)
	if err != nil {
		orders.Close()
		portfolios.Close()
		return Model{}, fmt.Errorf("portfolio items view: %w", err)
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 200

	m := Model{
		dispatcher: catalog.NewDispatcher(backend, notifier, opts.Logger),
		notifier:   notifier,
		logger:     opts.Logger,
		version:    opts.Version,
		orders: &listPane[catalog.Order, catalog.OrderRow]{
			name: catalog.ViewOrders, label: "Orders", ctl: orders,
			cols: orderColumns(), render: orderCells,
		},
		portfolios: &listPane[catalog.Portfolio, catalog.Portfolio]{
			name: catalog.ViewPortfolios, label: "Portfolios", ctl: portfolios,
			cols: portfolioColumns(), render: portfolioCells,
		},
		items: &listPane[catalog.PortfolioItem, catalog.PortfolioItemRow]{
			name: catalog.ViewPortfolioItems, label: "Products", ctl: items,
			cols: portfolioItemColumns(), render: portfolioItemCells,
		},
		filterInput: ti,
		done:        make(chan struct{}),
		closeOnce:   &sync.Once{},
	}
	m.panes = []pane{m.orders, m.portfolios, m.items}
	return m, nil
}

func identity[T any](v T) T { return v }

// Close stops every controller. It is safe to call more than once.
func (m Model) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		for _, p := range m.panes {
			p.controller().Close()
		}
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.current().controller().Mount()
	cmds := []tea.Cmd{m.waitForNotification(), textinput.Blink}
	for _, p := range m.panes {
		cmds = append(cmds, m.waitForChange(p))
	}
	return tea.Batch(cmds...)
}

func (m Model) current() pane {
	return m.panes[m.active]
}

// changedMsg signals a state or result change in one view.
type changedMsg struct {
	view string
}

// notifyMsg carries a notification from a controller or an action.
type notifyMsg struct {
	n listctl.Notification
}

// actionDoneMsg is sent when a confirmed or declined action finishes.
type actionDoneMsg struct {
	outcome catalog.Outcome
	refresh []string
}

type flashClearMsg struct {
	seq uint64
}

type spinnerTickMsg struct{}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

const flashDuration = 4 * time.Second

// actionTimeout bounds a single catalog write.
const actionTimeout = 30 * time.Second

// waitForChange blocks until the pane's controller signals a change.
func (m Model) waitForChange(p pane) tea.Cmd {
	ch := p.controller().Changes()
	done := m.done
	view := p.view()
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{view: view}
		case <-done:
			return nil
		}
	}
}

func (m Model) waitForNotification() tea.Cmd {
	ch := m.notifier.C
	done := m.done
	return func() tea.Msg {
		select {
		case n := <-ch:
			return notifyMsg{n: n}
		case <-done:
			return nil
		}
	}
}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already active,
// and marks it as active. Call this when loading begins.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive || !m.busy() {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// busy reports whether the current view is loading. Before the first
// page lands the view counts as loading.
func (m Model) busy() bool {
	st := m.current().controller().State()
	return st.Busy() || !st.Initialized
}

func (m Model) paneByView(view string) pane {
	for _, p := range m.panes {
		if p.view() == view {
			return p
		}
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filterInput.Width = max(msg.Width-30, 10)
		m.ensureCursorVisible()
		return m, nil

	case changedMsg:
		p := m.paneByView(msg.view)
		if p == nil {
			return m, nil
		}
		clampCursor(p)
		if p == m.current() {
			m.ensureCursorVisible()
		}
		cmds := []tea.Cmd{m.waitForChange(p)}
		if cmd := m.startSpinner(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case notifyMsg:
		m2, cmd := m.showFlash(msg.n)
		return m2, tea.Batch(cmd, m.waitForNotification())

	case actionDoneMsg:
		if msg.outcome == catalog.OutcomeDone {
			for _, view := range msg.refresh {
				if p := m.paneByView(view); p != nil && p.controller().State().Initialized {
					p.controller().Refresh()
				}
			}
		}
		return m, m.startSpinner()

	case flashClearMsg:
		if msg.seq == m.flashSeq {
			m.flashMessage = ""
			m.flashVariant = ""
		}
		return m, nil

	case spinnerTickMsg:
		if !m.busy() {
			m.spinnerActive = false
			return m, nil
		}
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, spinnerTick()
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// showFlash displays a notification until flashDuration passes or a
// newer one replaces it.
func (m Model) showFlash(n listctl.Notification) (tea.Model, tea.Cmd) {
	m.flashSeq++
	seq := m.flashSeq
	m.flashMessage = n.Title
	if n.Description != "" {
		m.flashMessage += ": " + n.Description
	}
	m.flashVariant = n.Variant
	return m, tea.Tick(flashDuration, func(t time.Time) tea.Msg {
		return flashClearMsg{seq: seq}
	})
}

// switchPane activates pane i and mounts it on first use.
func (m Model) switchPane(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.panes) || i == m.active {
		return m, nil
	}
	m.active = i
	m.filtering = false
	m.filterInput.Blur()
	m.current().controller().Mount()
	return m, m.startSpinner()
}

// confirm opens the confirmation modal for a.
func (m Model) confirm(a *pendingAction) (tea.Model, tea.Cmd) {
	m.pending = a
	m.modal = modalConfirm
	return m, nil
}

// resolvePending runs the pending action with the user's answer.
func (m Model) resolvePending(confirmed bool) (tea.Model, tea.Cmd) {
	a := m.pending
	m.pending = nil
	m.modal = modalNone
	if a == nil {
		return m, nil
	}
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{outcome: a.run(ctx, confirmed), refresh: a.refresh}
	}
}

// cancelOrderAction builds the confirmation for canceling the order
// under the cursor.
func (m Model) cancelOrderAction() *pendingAction {
	row, ok := m.orders.selected()
	if !ok {
		return nil
	}
	id := row.ID
	return &pendingAction{
		prompt: fmt.Sprintf("Cancel order %s (%s)?", id, row.Name),
		run: func(ctx context.Context, confirmed bool) catalog.Outcome {
			_, outcome, _ := m.dispatcher.CancelOrder(ctx, id, confirmed)
			return outcome
		},
		refresh: []string{catalog.ViewOrders},
	}
}

// removePortfolioAction builds the confirmation for removing the
// portfolio under the cursor.
func (m Model) removePortfolioAction() *pendingAction {
	p, ok := m.portfolios.selected()
	if !ok {
		return nil
	}
	return &pendingAction{
		prompt: fmt.Sprintf("Remove portfolio %s?", p.Name),
		run: func(ctx context.Context, confirmed bool) catalog.Outcome {
			outcome, _ := m.dispatcher.RemovePortfolio(ctx, p, confirmed)
			return outcome
		},
		refresh: []string{catalog.ViewPortfolios, catalog.ViewPortfolioItems},
	}
}

// viewToken encodes every view's query as a shareable token.
func (m Model) viewToken() string {
	loc := listctl.Location{}
	for _, p := range m.panes {
		loc.Set(p.view(), p.controller().State().Query)
	}
	return loc.Encode()
}

// clampCursor keeps the cursor inside the loaded rows.
func clampCursor(p pane) {
	n := len(p.cells())
	if p.cursorPos() >= n {
		p.setCursor(max(n-1, 0))
	}
}

// visibleRows is the number of table rows that fit on screen.
func (m Model) visibleRows() int {
	return max(m.height-fixedLines, 1)
}

func (m *Model) ensureCursorVisible() {
	p := m.current()
	rows := m.visibleRows()
	if p.cursorPos() < p.scroll() {
		p.setScroll(p.cursorPos())
	} else if p.cursorPos() >= p.scroll()+rows {
		p.setScroll(p.cursorPos() - rows + 1)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}
	view := m.renderView()
	if m.modal != modalNone {
		view = m.overlayModal(view)
	}
	return view
}
