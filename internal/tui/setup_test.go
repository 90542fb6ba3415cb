package tui

import (
	"regexp"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/wesm/catalogview/internal/clock"
	"github.com/wesm/catalogview/internal/listctl"
	"github.com/wesm/catalogview/internal/testutil/catalogtest"
)

var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output. It acquires colorProfileMu to prevent data races with
// parallel tests and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

const testDebounce = 300 * time.Millisecond

// harness drives a Model against the seeded in-memory catalog.
type harness struct {
	t       *testing.T
	m       Model
	backend *catalogtest.Backend
	clock   *clock.FakeClock
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	b := catalogtest.New()
	catalogtest.Seed(b)
	return newHarnessWith(t, b, opts)
}

func newHarnessWith(t *testing.T, b *catalogtest.Backend, opts Options) *harness {
	t.Helper()
	fc := clock.Fake(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	opts.Clock = fc
	if opts.DebounceWait == 0 {
		opts.DebounceWait = testDebounce
	}
	opts.DiscardStale = true
	m, err := New(b, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.Close)

	h := &harness{t: t, m: m, backend: b, clock: fc}
	h.update(tea.WindowSizeMsg{Width: 120, Height: 24})
	h.m.current().controller().Mount()
	h.settle()
	return h
}

// settle waits for every fetch of every view to finish.
func (h *harness) settle() {
	for _, p := range h.m.panes {
		p.controller().(interface{ Wait() }).Wait()
	}
}

// flush fires pending debounced fetches and waits for them.
func (h *harness) flush() {
	h.clock.Advance(testDebounce)
	h.settle()
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) press(keys ...string) tea.Cmd {
	h.t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		cmd = h.update(keyMsg(k))
	}
	return cmd
}

func (h *harness) view() string {
	return stripANSI(h.m.View())
}

// nextNotification reads the next notification published to the model.
func (h *harness) nextNotification() listctl.Notification {
	h.t.Helper()
	select {
	case n := <-h.m.notifier.C:
		return n
	case <-time.After(2 * time.Second):
		h.t.Fatal("no notification")
		return listctl.Notification{}
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// orderIDs returns the ids of the loaded orders in display order.
func (h *harness) orderIDs() []string {
	var ids []string
	for _, r := range h.m.orders.ctl.Rows() {
		ids = append(ids, r.ID)
	}
	return ids
}
