package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/config"
	"github.com/wesm/catalogview/internal/listctl"
	"github.com/wesm/catalogview/internal/scheduler"
	"github.com/wesm/catalogview/internal/testutil/catalogtest"
)

// testLogger returns a logger for tests that discards output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockScheduler implements SyncScheduler for tests.
type mockScheduler struct {
	scheduled bool
	running   bool
	status    SyncStatus
	triggerFn func() error
	triggered int
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{running: true}
}

func (m *mockScheduler) IsScheduled() bool { return m.scheduled }

func (m *mockScheduler) TriggerSync() error {
	m.triggered++
	if m.triggerFn != nil {
		return m.triggerFn()
	}
	return nil
}

func (m *mockScheduler) Status() SyncStatus { return m.status }
func (m *mockScheduler) IsRunning() bool    { return m.running }

type fixture struct {
	t       *testing.T
	server  *Server
	backend *catalogtest.Backend
	token   string
}

func newFixture(t *testing.T, token string, sched SyncScheduler) *fixture {
	t.Helper()
	t.Setenv("CATALOGVIEW_HOME", t.TempDir())
	cfg := config.NewDefaultConfig()
	cfg.Server.Token = token
	cfg.Server.RateLimitRPS = 0

	b := catalogtest.New()
	catalogtest.Seed(b)
	return &fixture{
		t:       t,
		server:  NewServer(cfg, b, sched, testLogger()),
		backend: b,
		token:   token,
	}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, status, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "s3cret", nil)
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)

	wantStatus(t, w, http.StatusOK)
	if got := w.Body.String(); got != `{"status":"ok"}` {
		t.Errorf("body = %q", got)
	}
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t, "s3cret", nil)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong bearer", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "Authorization", "Bearer s3cret", http.StatusOK},
		{"raw authorization", "Authorization", "s3cret", http.StatusOK},
		{"api key header", "X-API-Key", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", BasePath+"/portfolios", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			f.server.Router().ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthDisabledWithoutToken(t *testing.T) {
	f := newFixture(t, "", nil)
	wantStatus(t, f.do("GET", BasePath+"/portfolios", nil), http.StatusOK)
}

func TestOpenAPIVersion(t *testing.T) {
	f := newFixture(t, "", nil)
	w := f.do("GET", BasePath+"/openapi.json", nil)
	wantStatus(t, w, http.StatusOK)
	doc := decode[openAPIDoc](t, w)
	if doc.Info.Version != APIVersion {
		t.Errorf("version = %q, want %q", doc.Info.Version, APIVersion)
	}
}

func TestListOrders(t *testing.T) {
	f := newFixture(t, "", nil)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
		count   int
	}{
		{"all newest first", "", []string{"o-4", "o-3", "o-2", "o-1"}, 4},
		{"state multi", "?filter[state][eq][]=Completed&filter[state][eq][]=Failed", []string{"o-2", "o-1"}, 2},
		{"owner contains_i", "?filter[owner][contains_i]=ALI", []string{"o-3", "o-1"}, 2},
		{"paged", "?limit=2&offset=2", []string{"o-2", "o-1"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do("GET", BasePath+"/orders"+tt.query, nil)
			wantStatus(t, w, http.StatusOK)
			rs := decode[listctl.ResultSet[catalog.Order]](t, w)

			var ids []string
			for _, o := range rs.Items {
				ids = append(ids, o.ID)
				if len(o.OrderItems) != 0 {
					t.Errorf("order %s carries order items", o.ID)
				}
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if rs.Meta.Count != tt.count {
				t.Errorf("count = %d, want %d", rs.Meta.Count, tt.count)
			}
		})
	}
}

func TestGetOrderNotFound(t *testing.T) {
	f := newFixture(t, "", nil)
	w := f.do("GET", BasePath+"/orders/missing", nil)
	wantStatus(t, w, http.StatusNotFound)

	resp := decode[ErrorResponse](t, w)
	if len(resp.Errors) != 1 || resp.Errors[0].Status != "404" {
		t.Errorf("errors = %+v", resp.Errors)
	}
}

func TestListOrderItems(t *testing.T) {
	f := newFixture(t, "", nil)
	w := f.do("GET", BasePath+"/order_items?filter[order_id][eq][]=o-1&filter[order_id][eq][]=o-3&filter[order_id][eq][]=gone", nil)
	wantStatus(t, w, http.StatusOK)

	rs := decode[listctl.ResultSet[catalog.OrderItem]](t, w)
	got := map[string]string{}
	for _, it := range rs.Items {
		got[it.OrderID] = it.PortfolioItemID
	}
	want := map[string]string{"o-1": "pi-vm", "o-3": "pi-wiki"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order items mismatch (-want +got):\n%s", diff)
	}
}

func TestListOrderItems_Paging(t *testing.T) {
	f := newFixture(t, "", nil)
	ids := "filter[order_id][eq][]=o-1&filter[order_id][eq][]=o-2&filter[order_id][eq][]=o-3"

	w := f.do("GET", BasePath+"/order_items?"+ids+"&limit=2&offset=0", nil)
	wantStatus(t, w, http.StatusOK)
	first := decode[listctl.ResultSet[catalog.OrderItem]](t, w)
	if len(first.Items) != 2 || first.Meta.Count != 3 {
		t.Fatalf("first page = %d items, meta %+v", len(first.Items), first.Meta)
	}

	w = f.do("GET", BasePath+"/order_items?"+ids+"&limit=2&offset=2", nil)
	wantStatus(t, w, http.StatusOK)
	second := decode[listctl.ResultSet[catalog.OrderItem]](t, w)
	if len(second.Items) != 1 || second.Meta.Offset != 2 {
		t.Fatalf("second page = %d items, meta %+v", len(second.Items), second.Meta)
	}
	if second.Items[0].OrderID == first.Items[0].OrderID || second.Items[0].OrderID == first.Items[1].OrderID {
		t.Errorf("pages overlap: %+v then %+v", first.Items, second.Items)
	}

	w = f.do("GET", BasePath+"/order_items?"+ids+"&offset=9", nil)
	if rs := decode[listctl.ResultSet[catalog.OrderItem]](t, w); len(rs.Items) != 0 || rs.Meta.Count != 3 {
		t.Errorf("past the end = %+v", rs)
	}
}

func TestSubmitOrderFlow(t *testing.T) {
	f := newFixture(t, "", nil)

	w := f.do("POST", BasePath+"/orders", struct{}{})
	wantStatus(t, w, http.StatusCreated)
	draft := decode[catalog.Order](t, w)
	if draft.ID == "" || draft.State != catalog.StateCreated {
		t.Fatalf("draft = %+v", draft)
	}

	// Drafts are visible but not yet sent to the backend.
	wantStatus(t, f.do("GET", BasePath+"/orders/"+draft.ID, nil), http.StatusOK)
	if n := f.backend.CallCount("SubmitOrder"); n != 0 {
		t.Fatalf("SubmitOrder called %d times before submit", n)
	}

	w = f.do("POST", BasePath+"/orders/"+draft.ID+"/order_items", orderItemRequest{PortfolioItemID: "pi-db"})
	wantStatus(t, w, http.StatusCreated)
	item := decode[catalog.OrderItem](t, w)
	if item.OrderID != draft.ID || item.PortfolioItemID != "pi-db" {
		t.Errorf("item = %+v", item)
	}

	w = f.do("POST", BasePath+"/orders/"+draft.ID+"/submit_order", nil)
	wantStatus(t, w, http.StatusOK)
	order := decode[catalog.Order](t, w)
	if order.State != catalog.StateOrdered {
		t.Errorf("state = %q, want %q", order.State, catalog.StateOrdered)
	}
	if len(order.OrderItems) != 1 || order.OrderItems[0].PortfolioItemID != "pi-db" {
		t.Errorf("order items = %+v", order.OrderItems)
	}

	// The draft is consumed.
	wantStatus(t, f.do("POST", BasePath+"/orders/"+draft.ID+"/submit_order", nil), http.StatusNotFound)
}

func TestSubmitOrderErrors(t *testing.T) {
	f := newFixture(t, "", nil)
	draft := decode[catalog.Order](t, f.do("POST", BasePath+"/orders", nil))

	wantStatus(t, f.do("POST", BasePath+"/orders/"+draft.ID+"/submit_order", nil), http.StatusUnprocessableEntity)
	wantStatus(t, f.do("POST", BasePath+"/orders/"+draft.ID+"/order_items", orderItemRequest{}), http.StatusUnprocessableEntity)
	wantStatus(t, f.do("POST", BasePath+"/orders/missing/order_items", orderItemRequest{PortfolioItemID: "pi-vm"}), http.StatusNotFound)

	req := httptest.NewRequest("POST", BasePath+"/orders/"+draft.ID+"/order_items", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	wantStatus(t, w, http.StatusBadRequest)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t, "", nil)

	w := f.do("PATCH", BasePath+"/orders/o-3/cancel", nil)
	wantStatus(t, w, http.StatusOK)
	if o := decode[catalog.Order](t, w); o.State != catalog.StateCanceled {
		t.Errorf("state = %q", o.State)
	}

	wantStatus(t, f.do("PATCH", BasePath+"/orders/o-1/cancel", nil), http.StatusUnprocessableEntity)
	wantStatus(t, f.do("PATCH", BasePath+"/orders/missing/cancel", nil), http.StatusNotFound)
}

func TestPortfolios(t *testing.T) {
	f := newFixture(t, "", nil)

	w := f.do("GET", BasePath+"/portfolios?filter[name][contains_i]=INFRA", nil)
	wantStatus(t, w, http.StatusOK)
	rs := decode[listctl.ResultSet[catalog.Portfolio]](t, w)
	if len(rs.Items) != 1 || rs.Items[0].ID != "pf-infra" {
		t.Fatalf("portfolios = %+v", rs.Items)
	}

	w = f.do("GET", BasePath+"/portfolio_items?filter[portfolio_id][eq]=pf-infra", nil)
	wantStatus(t, w, http.StatusOK)
	items := decode[listctl.ResultSet[catalog.PortfolioItem]](t, w)
	if items.Meta.Count != 2 {
		t.Errorf("items in pf-infra = %d, want 2", items.Meta.Count)
	}

	wantStatus(t, f.do("DELETE", BasePath+"/portfolios/pf-infra", nil), http.StatusNoContent)
	wantStatus(t, f.do("DELETE", BasePath+"/portfolios/pf-infra", nil), http.StatusNotFound)
}

func TestListPlatformsPaging(t *testing.T) {
	f := newFixture(t, "", nil)
	f.backend.AddPlatform(catalog.Platform{ID: "plat-2", Name: "OpenShift"})
	f.backend.AddPlatform(catalog.Platform{ID: "plat-3", Name: "Azure"})

	w := f.do("GET", BasePath+"/platforms?limit=2&offset=1", nil)
	wantStatus(t, w, http.StatusOK)
	rs := decode[listctl.ResultSet[catalog.Platform]](t, w)
	if rs.Meta.Count != 3 || len(rs.Items) != 2 || rs.Items[0].ID != "plat-2" {
		t.Errorf("platforms = %+v meta %+v", rs.Items, rs.Meta)
	}

	w = f.do("GET", BasePath+"/platforms?offset=10", nil)
	wantStatus(t, w, http.StatusOK)
	if rs := decode[listctl.ResultSet[catalog.Platform]](t, w); len(rs.Items) != 0 {
		t.Errorf("past-end page = %+v", rs.Items)
	}
}

func TestBackendErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not supported", catalog.ErrNotSupported, http.StatusNotImplemented},
		{"not found", catalog.ErrNotFound, http.StatusNotFound},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "", nil)
			f.backend.Err = tt.err
			wantStatus(t, f.do("GET", BasePath+"/orders", nil), tt.want)
		})
	}
}

func TestSchedulerStatus(t *testing.T) {
	t.Run("no scheduler", func(t *testing.T) {
		f := newFixture(t, "", nil)
		w := f.do("GET", BasePath+"/scheduler/status", nil)
		wantStatus(t, w, http.StatusOK)
		resp := decode[SchedulerStatusResponse](t, w)
		if resp.Running || resp.Sync.Scheduled {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("scheduled", func(t *testing.T) {
		sched := newMockScheduler()
		sched.status = SyncStatus{
			Scheduled:  true,
			Schedule:   "*/5 * * * *",
			LastSyncID: 7,
			LastStatus: "failed",
			LastError:  "catalog unreachable",
		}
		f := newFixture(t, "", sched)
		resp := decode[SchedulerStatusResponse](t, f.do("GET", BasePath+"/scheduler/status", nil))
		if diff := cmp.Diff(sched.status, resp.Sync); diff != "" || !resp.Running {
			t.Errorf("running = %v, sync mismatch (-want +got):\n%s", resp.Running, diff)
		}
	})
}

func TestTriggerSync(t *testing.T) {
	sched := newMockScheduler()
	f := newFixture(t, "", sched)

	wantStatus(t, f.do("POST", BasePath+"/sync", nil), http.StatusNotFound)

	sched.scheduled = true
	wantStatus(t, f.do("POST", BasePath+"/sync", nil), http.StatusAccepted)

	sched.triggerFn = func() error { return scheduler.ErrAlreadyRunning }
	wantStatus(t, f.do("POST", BasePath+"/sync", nil), http.StatusConflict)

	if sched.triggered != 2 {
		t.Errorf("triggered %d times, want 2", sched.triggered)
	}
}

func TestStartRejectsInsecureBind(t *testing.T) {
	f := newFixture(t, "", nil)
	f.server.cfg.Server.BindAddr = "0.0.0.0"
	if err := f.server.Start(); err == nil {
		t.Fatal("Start() should refuse a public bind without a token")
	}
}
