package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func TestView_FillsTerminal(t *testing.T) {
	forceColorProfile(t)
	h := newHarness(t, Options{Version: "v1.2.3"})

	lines := strings.Split(h.m.View(), "\n")
	if len(lines) != 24 {
		t.Fatalf("got %d lines, want 24", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 120 {
			t.Errorf("line %d width = %d, want 120: %q", i, w, stripANSI(line))
		}
	}
	if !strings.HasPrefix(stripANSI(lines[0]), " catalogview v1.2.3") {
		t.Errorf("title bar = %q", stripANSI(lines[0]))
	}
}

func TestView_EmptyStateFillsTerminal(t *testing.T) {
	forceColorProfile(t)
	h := newHarness(t, Options{})
	h.press("f", "/", "z", "z", "enter")
	h.settle()

	lines := strings.Split(h.m.View(), "\n")
	if len(lines) != 24 {
		t.Fatalf("got %d lines, want 24", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 120 {
			t.Errorf("line %d width = %d, want 120: %q", i, w, stripANSI(line))
		}
	}
}

func TestView_ModalKeepsLineCount(t *testing.T) {
	h := newHarness(t, Options{})
	h.press("?")

	if got := len(strings.Split(h.m.View(), "\n")); got != 24 {
		t.Errorf("got %d lines with modal open, want 24", got)
	}
}

func TestView_BeforeFirstResize(t *testing.T) {
	h := newHarness(t, Options{})
	h.m.width = 0
	if got := h.m.View(); got != "Loading..." {
		t.Errorf("View() = %q", got)
	}
}

func TestView_FilterLine(t *testing.T) {
	h := newHarness(t, Options{})

	if !strings.Contains(h.view(), "Filter by State: (any)") {
		t.Error("multi filter line missing")
	}
	h.press("f")
	if !strings.Contains(h.view(), "Filter by Owner:") {
		t.Error("scalar filter line missing")
	}
}

func TestView_SpinnerWhileLoading(t *testing.T) {
	h := newHarness(t, Options{})

	// A typed but unflushed filter keeps the view busy.
	h.press("f", "/", "b")
	if !h.m.busy() {
		t.Fatal("view not busy with a pending filter")
	}
	if !h.m.spinnerActive {
		t.Fatal("spinner not started")
	}
	if !strings.Contains(h.view(), "Loading") {
		t.Error("spinner not rendered")
	}

	h.press("enter")
	h.settle()
	h.update(spinnerTickMsg{})
	if h.m.spinnerActive {
		t.Error("spinner still active after the fetch settled")
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(time.Time{}); got != "-" {
		t.Errorf("formatTime(zero) = %q", got)
	}
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local)
	if got := formatTime(ts); got != "2024-03-01 12:30" {
		t.Errorf("formatTime = %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"line\nbreak", 20, "line break"},
		{"日本語テキスト", 7, "日本..."},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.width); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("abcdef", 4); got != "abcd" {
		t.Errorf("padRight = %q", got)
	}
}

func TestColumnWidths(t *testing.T) {
	cols := orderColumns()
	widths := columnWidths(cols, 100)

	total := len(cols) - 1
	for _, w := range widths {
		total += w
	}
	if total != 100 {
		t.Errorf("total width = %d, want 100 (%v)", total, widths)
	}
	if widths[0] != 100-73 {
		t.Errorf("flex width = %d, want %d", widths[0], 100-73)
	}

	narrow := columnWidths(cols, 40)
	if narrow[0] != 8 {
		t.Errorf("flex width on a narrow screen = %d, want 8", narrow[0])
	}
}

func TestToggle(t *testing.T) {
	in := []string{"a", "b"}
	if got := toggle(in, "c"); strings.Join(got, ",") != "a,b,c" {
		t.Errorf("toggle add = %v", got)
	}
	if got := toggle(in, "a"); strings.Join(got, ",") != "b" {
		t.Errorf("toggle remove = %v", got)
	}
	if strings.Join(in, ",") != "a,b" {
		t.Errorf("input modified: %v", in)
	}
}
