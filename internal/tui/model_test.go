package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
	"github.com/wesm/catalogview/internal/testutil/catalogtest"
)

func TestInitialLoad_ShowsOrdersNewestFirst(t *testing.T) {
	h := newHarness(t, Options{})

	if diff := cmp.Diff([]string{"o-4", "o-3", "o-2", "o-1"}, h.orderIDs()); diff != "" {
		t.Errorf("orders mismatch (-want +got):\n%s", diff)
	}
	view := h.view()
	for _, want := range []string{"[1 Orders]", "No filters", "Virtual Machine", "Wiki", "Canceled", "Page 1/1 · 4 results"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if h.m.portfolios.ctl.State().Initialized {
		t.Error("portfolios view mounted before it was opened")
	}
}

func TestStateFilter_OptionsModal(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("/")
	if h.m.modal != modalOptions {
		t.Fatalf("modal = %v, want options", h.m.modal)
	}
	if !strings.Contains(h.view(), "Filter by State") {
		t.Error("options modal not rendered")
	}

	// ApprovalPending, Canceled, Completed
	h.press("j", "j", " ")
	if got := h.m.orders.ctl.State().Query.Filters.Values(catalog.FieldState); !cmp.Equal(got, []string{catalog.StateCompleted}) {
		t.Errorf("state filter = %v", got)
	}
	h.press("esc")
	h.settle()

	if h.m.modal != modalNone {
		t.Errorf("modal still open")
	}
	if diff := cmp.Diff([]string{"o-1"}, h.orderIDs()); diff != "" {
		t.Errorf("orders mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(h.view(), "State: Completed ×") {
		t.Error("chip not rendered")
	}
}

func TestOwnerFilter_TypingIsDebounced(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("f")
	if got := h.m.orders.ctl.State().ActiveField; got != catalog.FieldOwner {
		t.Fatalf("active field = %q, want owner", got)
	}
	h.press("/")
	if !h.m.filtering {
		t.Fatal("filter input not focused")
	}
	h.press("a", "l", "i")
	if got := h.backend.CallCount("ListOrders"); got != 1 {
		t.Errorf("ListOrders calls while typing = %d, want 1", got)
	}

	h.press("enter")
	h.settle()

	if h.m.filtering {
		t.Error("filter input still focused after enter")
	}
	if got := h.backend.CallCount("ListOrders"); got != 2 {
		t.Errorf("ListOrders calls = %d, want 2", got)
	}
	if diff := cmp.Diff([]string{"o-3", "o-1"}, h.orderIDs()); diff != "" {
		t.Errorf("orders mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyResults_ClearAllFilters(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("f", "/", "z", "z", "z", "enter")
	h.settle()

	view := h.view()
	if !strings.Contains(view, "No results found") {
		t.Error("empty results message missing")
	}
	if !strings.Contains(view, "Press c to clear all filters.") {
		t.Error("clear filters hint missing")
	}

	h.press("c")
	h.flush()
	if got := len(h.orderIDs()); got != 4 {
		t.Errorf("orders after clear = %d, want 4", got)
	}
	if len(h.m.orders.ctl.Chips()) != 0 {
		t.Error("chips left after clear")
	}
}

func TestNoDataAtAll(t *testing.T) {
	h := newHarnessWith(t, catalogtest.New(), Options{})

	view := h.view()
	if !strings.Contains(view, "No orders have been created.") {
		t.Error("no data message missing")
	}
	if strings.Contains(view, "Press c") {
		t.Error("clear filters hint shown without filters")
	}

	calls := h.backend.CallCount("ListOrders")
	h.press("n", "right", "n")
	h.settle()
	if got := h.backend.CallCount("ListOrders"); got != calls {
		t.Errorf("paging an empty list fetched %d more times", got-calls)
	}
	if got := h.m.orders.ctl.State().Query.Pagination.Offset; got != 0 {
		t.Errorf("offset after paging an empty list = %d, want 0", got)
	}
}

func TestRemoveChip(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("f", "/", "b", "o", "b", "enter")
	h.settle()
	if diff := cmp.Diff([]string{"o-2"}, h.orderIDs()); diff != "" {
		t.Fatalf("orders mismatch (-want +got):\n%s", diff)
	}

	h.press("x")
	h.flush()
	if got := len(h.orderIDs()); got != 4 {
		t.Errorf("orders after removing chip = %d, want 4", got)
	}
}

func TestPaging(t *testing.T) {
	h := newHarness(t, Options{PageSize: 2})

	if diff := cmp.Diff([]string{"o-4", "o-3"}, h.orderIDs()); diff != "" {
		t.Errorf("page 1 mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(h.view(), "Page 1/2 · 4 results") {
		t.Error("page indicator missing on page 1")
	}

	h.press("n")
	h.settle()
	if diff := cmp.Diff([]string{"o-2", "o-1"}, h.orderIDs()); diff != "" {
		t.Errorf("page 2 mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(h.view(), "Page 2/2 · 4 results") {
		t.Error("page indicator missing on page 2")
	}

	h.press("n")
	h.settle()
	if got := h.backend.CallCount("ListOrders"); got != 2 {
		t.Errorf("ListOrders calls past the last page = %d, want 2", got)
	}

	h.press("p")
	h.settle()
	if diff := cmp.Diff([]string{"o-4", "o-3"}, h.orderIDs()); diff != "" {
		t.Errorf("back to page 1 mismatch (-want +got):\n%s", diff)
	}
}

func TestCursorMovement(t *testing.T) {
	h := newHarness(t, Options{})

	tests := []struct {
		key  string
		want int
	}{
		{"k", 0},
		{"j", 1},
		{"down", 2},
		{"G", 3},
		{"j", 3},
		{"up", 2},
		{"g", 0},
	}
	for _, tt := range tests {
		h.press(tt.key)
		if got := h.m.orders.cursorPos(); got != tt.want {
			t.Errorf("after %q cursor = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestChangedMsg_ClampsCursor(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("G")
	h.press("f", "/", "a", "l", "i", "enter")
	h.settle()
	h.update(changedMsg{view: catalog.ViewOrders})

	if got := h.m.orders.cursorPos(); got != 1 {
		t.Errorf("cursor = %d, want 1", got)
	}
}

func TestSwitchPane_MountsOnce(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("tab")
	h.settle()
	if !h.m.portfolios.ctl.State().Initialized {
		t.Fatal("portfolios view not mounted")
	}
	view := h.view()
	for _, want := range []string{"[2 Portfolios]", "Applications", "Infrastructure"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	h.press("1", "2")
	h.settle()
	if got := h.backend.CallCount("ListPortfolios"); got != 1 {
		t.Errorf("ListPortfolios calls = %d, want 1", got)
	}

	h.press("3")
	h.settle()
	if !strings.Contains(h.view(), "Database") {
		t.Error("products view missing Database")
	}

	h.press("shift+tab")
	if h.m.active != 1 {
		t.Errorf("active = %d, want 1", h.m.active)
	}
}

func TestCancelOrder_Confirmed(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("j", "d")
	if h.m.modal != modalConfirm {
		t.Fatalf("modal = %v, want confirm", h.m.modal)
	}
	if !strings.Contains(h.view(), "Cancel order o-3 (Wiki)?") {
		t.Error("confirm prompt missing")
	}

	cmd := h.press("y")
	if h.m.modal != modalNone {
		t.Error("modal still open")
	}
	raw := cmd()
	msg, ok := raw.(actionDoneMsg)
	if !ok {
		t.Fatalf("cmd returned %T, want actionDoneMsg", raw)
	}
	if msg.outcome != catalog.OutcomeDone {
		t.Errorf("outcome = %v, want done", msg.outcome)
	}
	if n := h.nextNotification(); n.Variant != listctl.VariantSuccess {
		t.Errorf("notification variant = %q, want success", n.Variant)
	}

	h.update(msg)
	h.settle()
	rows := h.m.orders.ctl.Rows()
	if rows[1].ID != "o-3" || rows[1].State != catalog.StateCanceled {
		t.Errorf("row 1 = %s %s, want o-3 Canceled", rows[1].ID, rows[1].State)
	}
}

func TestCancelOrder_Declined(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("d")
	cmd := h.press("n")
	msg := cmd().(actionDoneMsg)
	if msg.outcome != catalog.OutcomeCancelled {
		t.Errorf("outcome = %v, want cancelled", msg.outcome)
	}
	if n := h.nextNotification(); n.Variant != listctl.VariantWarning {
		t.Errorf("notification variant = %q, want warning", n.Variant)
	}
	if got := h.backend.CallCount("CancelOrder"); got != 0 {
		t.Errorf("CancelOrder calls = %d, want 0", got)
	}
}

func TestRemovePortfolio(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("tab")
	h.settle()
	h.press("d")
	if !strings.Contains(h.view(), "Remove portfolio Applications?") {
		t.Fatal("confirm prompt missing")
	}

	msg := h.press("y")().(actionDoneMsg)
	h.update(msg)
	h.settle()

	if got := h.m.portfolios.ctl.Result().Meta.Count; got != 1 {
		t.Errorf("portfolios after remove = %d, want 1", got)
	}
	if h.m.items.ctl.State().Initialized {
		t.Error("unopened products view was mounted by the refresh")
	}
}

func TestProducts_ShowPlatformName(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("3")
	h.settle()
	view := h.view()
	if !strings.Contains(view, "Ansible Tower") {
		t.Error("products view missing platform name")
	}
	if strings.Contains(view, "plat-1") {
		t.Error("products view shows the raw platform id")
	}
}

func TestDelete_NoActionOnProducts(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("3")
	h.settle()
	h.press("d")
	if h.m.modal != modalNone {
		t.Errorf("modal = %v, want none", h.m.modal)
	}
}

func TestFetchFailure_ShowsDangerFlash(t *testing.T) {
	b := catalogtest.New()
	b.Err = errors.New("catalog down")
	h := newHarnessWith(t, b, Options{})

	n := h.nextNotification()
	if n.Variant != listctl.VariantDanger {
		t.Errorf("variant = %q, want danger", n.Variant)
	}
	if cmd := h.update(notifyMsg{n: n}); cmd == nil {
		t.Error("notifyMsg returned no command")
	}
	if !strings.Contains(h.view(), "catalog down") {
		t.Error("flash message not rendered")
	}
	if h.m.orders.ctl.State().Busy() {
		t.Error("view still busy after failure")
	}
}

func TestFlashClear_IgnoresStaleTimer(t *testing.T) {
	h := newHarness(t, Options{})

	h.update(notifyMsg{n: listctl.Notification{Variant: listctl.VariantInfo, Title: "first"}})
	h.update(notifyMsg{n: listctl.Notification{Variant: listctl.VariantInfo, Title: "second"}})

	h.update(flashClearMsg{seq: 1})
	if h.m.flashMessage != "second" {
		t.Errorf("flash = %q, want second", h.m.flashMessage)
	}
	h.update(flashClearMsg{seq: 2})
	if h.m.flashMessage != "" {
		t.Errorf("flash = %q, want cleared", h.m.flashMessage)
	}
}

func TestViewToken_RoundTrip(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("f", "/", "b", "o", "b", "enter")
	h.settle()
	h.press("y")

	token, ok := strings.CutPrefix(h.m.flashMessage, "View token: ")
	if !ok {
		t.Fatalf("flash = %q", h.m.flashMessage)
	}
	loc, err := listctl.ParseLocation(token)
	if err != nil {
		t.Fatalf("ParseLocation: %v", err)
	}

	reopened := newHarness(t, Options{Location: loc})
	if diff := cmp.Diff([]string{"o-2"}, reopened.orderIDs()); diff != "" {
		t.Errorf("reopened orders mismatch (-want +got):\n%s", diff)
	}
}

func TestHelpModal(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("?")
	if !strings.Contains(h.view(), "Keyboard Shortcuts") {
		t.Fatal("help not rendered")
	}
	h.press("c")
	if h.m.modal != modalNone {
		t.Error("help still open")
	}
}

func TestQuit(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		t.Run(key, func(t *testing.T) {
			h := newHarness(t, Options{})
			if cmd := h.press(key); cmd == nil {
				t.Error("no quit command")
			}
			if h.view() != "" {
				t.Error("view not empty after quit")
			}
		})
	}
}

func TestQuit_WhileFiltering(t *testing.T) {
	h := newHarness(t, Options{})

	h.press("f", "/", "q")
	if h.m.quitting {
		t.Fatal("q quit while typing a filter")
	}
	if got := h.m.filterInput.Value(); got != "q" {
		t.Errorf("filter input = %q, want q", got)
	}
	h.press("ctrl+c")
	if !h.m.quitting {
		t.Error("ctrl+c did not quit")
	}
}
