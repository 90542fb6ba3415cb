package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/wesm/catalogview/internal/listctl"
)

type mockActions struct {
	submitted []OrderRequest
	canceled  []string
	removed   []string
	err       error
}

func (m *mockActions) SubmitOrder(_ context.Context, req OrderRequest) (Order, error) {
	if m.err != nil {
		return Order{}, m.err
	}
	m.submitted = append(m.submitted, req)
	return Order{ID: "500", State: StateCreated}, nil
}

func (m *mockActions) CancelOrder(_ context.Context, id string) (Order, error) {
	if m.err != nil {
		return Order{}, m.err
	}
	m.canceled = append(m.canceled, id)
	return Order{ID: id, State: StateCanceled}, nil
}

func (m *mockActions) RemovePortfolio(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, id)
	return nil
}

func newTestDispatcher(actions Actions) (*Dispatcher, *listctl.ChanNotifier) {
	n := listctl.NewChanNotifier(8)
	return NewDispatcher(actions, n, nil), n
}

func lastNotification(t *testing.T, n *listctl.ChanNotifier) listctl.Notification {
	t.Helper()
	select {
	case got := <-n.C:
		return got
	default:
		t.Fatal("no notification sent")
		return listctl.Notification{}
	}
}

func TestOrderRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     OrderRequest
		wantErr bool
	}{
		{"valid", OrderRequest{PortfolioItemID: "11"}, false},
		{"with parameters", OrderRequest{PortfolioItemID: "11", Parameters: map[string]string{"size": "m"}}, false},
		{"missing item", OrderRequest{}, true},
		{"empty parameter key", OrderRequest{PortfolioItemID: "11", Parameters: map[string]string{"": "x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDispatcher_RemovePortfolio(t *testing.T) {
	actions := &mockActions{}
	d, n := newTestDispatcher(actions)
	p := Portfolio{ID: "3", Name: "Dev"}

	outcome, err := d.RemovePortfolio(context.Background(), p, false)
	if err != nil || outcome != OutcomeCancelled {
		t.Fatalf("cancel: outcome=%v err=%v", outcome, err)
	}
	got := lastNotification(t, n)
	if got.Variant != listctl.VariantWarning || got.Title != "Removing portfolio was cancelled by the user." {
		t.Errorf("cancel notification = %+v", got)
	}
	if len(actions.removed) != 0 {
		t.Error("cancelled removal reached the backend")
	}

	outcome, err = d.RemovePortfolio(context.Background(), p, true)
	if err != nil || outcome != OutcomeDone {
		t.Fatalf("remove: outcome=%v err=%v", outcome, err)
	}
	if got := lastNotification(t, n); got.Variant != listctl.VariantSuccess {
		t.Errorf("success notification = %+v", got)
	}

	actions.err = errors.New("forbidden")
	outcome, err = d.RemovePortfolio(context.Background(), p, true)
	if err == nil || outcome != OutcomeFailed {
		t.Fatalf("failure: outcome=%v err=%v", outcome, err)
	}
	if got := lastNotification(t, n); got.Variant != listctl.VariantDanger || got.Description != "forbidden" {
		t.Errorf("failure notification = %+v", got)
	}
}

func TestDispatcher_CancelOrder(t *testing.T) {
	actions := &mockActions{}
	d, n := newTestDispatcher(actions)

	order, outcome, err := d.CancelOrder(context.Background(), "42", true)
	if err != nil || outcome != OutcomeDone || order.State != StateCanceled {
		t.Fatalf("cancel order: %+v %v %v", order, outcome, err)
	}
	if got := lastNotification(t, n); got.Variant != listctl.VariantSuccess {
		t.Errorf("notification = %+v", got)
	}

	_, outcome, _ = d.CancelOrder(context.Background(), "43", false)
	if outcome != OutcomeCancelled {
		t.Errorf("outcome = %v, want cancelled", outcome)
	}
	if got := lastNotification(t, n); got.Variant != listctl.VariantWarning {
		t.Errorf("notification = %+v", got)
	}
	if len(actions.canceled) != 1 {
		t.Errorf("backend saw %v, want only 42", actions.canceled)
	}
}

func TestDispatcher_SubmitOrderValidates(t *testing.T) {
	actions := &mockActions{}
	d, n := newTestDispatcher(actions)

	_, outcome, err := d.SubmitOrder(context.Background(), OrderRequest{}, true)
	if err == nil || outcome != OutcomeFailed {
		t.Fatalf("invalid request: outcome=%v err=%v", outcome, err)
	}
	if len(actions.submitted) != 0 {
		t.Error("invalid request reached the backend")
	}
	if got := lastNotification(t, n); got.Variant != listctl.VariantDanger {
		t.Errorf("notification = %+v", got)
	}

	order, outcome, err := d.SubmitOrder(context.Background(), OrderRequest{PortfolioItemID: "11", Name: "Web server"}, true)
	if err != nil || outcome != OutcomeDone || order.ID != "500" {
		t.Fatalf("submit: %+v %v %v", order, outcome, err)
	}
	if got := lastNotification(t, n); got.Description != "Order 500 for Web server was submitted." {
		t.Errorf("description = %q", got.Description)
	}
}
