package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/listctl"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

// ErrorDetail is one entry of an error response.
type ErrorDetail struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// ErrorResponse is the catalog API error shape.
type ErrorResponse struct {
	Errors []ErrorDetail `json:"errors"`
}

// SchedulerStatusResponse represents scheduler status.
type SchedulerStatusResponse struct {
	Running bool       `json:"running"`
	Sync    SyncStatus `json:"sync"`
}

type openAPIInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

type openAPIDoc struct {
	OpenAPI string      `json:"openapi"`
	Info    openAPIInfo `json:"info"`
}

type orderItemRequest struct {
	PortfolioItemID string            `json:"portfolio_item_id"`
	Parameters      map[string]string `json:"service_parameters,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Errors: []ErrorDetail{{
		Status: strconv.Itoa(status),
		Detail: detail,
	}}})
}

// writeBackendError maps backend errors to HTTP statuses.
func (s *Server) writeBackendError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, catalog.ErrNotSupported):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, catalog.ErrInvalidRequest):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		s.logger.Error("backend request failed",
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load "+what)
	}
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPIDoc{
		OpenAPI: "3.0.0",
		Info:    openAPIInfo{Title: "Catalog API", Version: APIVersion},
	})
}

// stripItems drops attached order items; the orders endpoint does not
// return them and clients load them from /order_items.
func stripItems(o catalog.Order) catalog.Order {
	o.OrderItems = nil
	return o
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := catalog.DecodeQuery(catalog.OrdersSchema, catalog.OrderAPIFilters, r.URL.Query())
	rs, err := s.backend.ListOrders(r.Context(), q)
	if err != nil {
		s.writeBackendError(w, r, err, "orders")
		return
	}
	for i := range rs.Items {
		rs.Items[i] = stripItems(rs.Items[i])
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if o, ok := s.drafts.get(id); ok {
		writeJSON(w, http.StatusOK, stripItems(o))
		return
	}
	o, err := s.backend.GetOrder(r.Context(), id)
	if err != nil {
		s.writeBackendError(w, r, err, "order")
		return
	}
	writeJSON(w, http.StatusOK, stripItems(o))
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, s.drafts.create(""))
}

func (s *Server) handleAddOrderItem(w http.ResponseWriter, r *http.Request) {
	var body orderItemRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item, err := s.drafts.addItem(chi.URLParam(r, "id"), catalog.OrderRequest{
		PortfolioItemID: body.PortfolioItemID,
		Parameters:      body.Parameters,
	})
	if err != nil {
		s.writeBackendError(w, r, err, "order")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	req, err := s.drafts.take(chi.URLParam(r, "id"))
	if err != nil {
		s.writeBackendError(w, r, err, "order")
		return
	}
	order, err := s.backend.SubmitOrder(r.Context(), req)
	if err != nil {
		s.writeBackendError(w, r, err, "order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.backend.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeBackendError(w, r, err, "order")
		return
	}
	writeJSON(w, http.StatusOK, stripItems(order))
}

// handleListOrderItems serves filter[order_id][eq][] lookups.
func (s *Server) handleListOrderItems(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["filter[order_id][eq][]"]
	if len(ids) == 0 {
		if id := r.URL.Query().Get("filter[order_id][eq]"); id != "" {
			ids = []string{id}
		}
	}

	items := []catalog.OrderItem{}
	for _, id := range ids {
		o, err := s.backend.GetOrder(r.Context(), id)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			s.writeBackendError(w, r, err, "order items")
			return
		}
		items = append(items, o.OrderItems...)
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = listctl.DefaultLimit
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	offset = min(max(offset, 0), len(items))
	writeJSON(w, http.StatusOK, listctl.ResultSet[catalog.OrderItem]{
		Items: items[offset:min(len(items), offset+limit)],
		Meta:  listctl.Meta{Count: len(items), Limit: limit, Offset: offset},
	})
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	q := catalog.DecodeQuery(catalog.PortfoliosSchema, catalog.PortfolioAPIFilters, r.URL.Query())
	rs, err := s.backend.ListPortfolios(r.Context(), q)
	if err != nil {
		s.writeBackendError(w, r, err, "portfolios")
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleRemovePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.RemovePortfolio(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeBackendError(w, r, err, "portfolio")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPortfolioItems(w http.ResponseWriter, r *http.Request) {
	q := catalog.DecodeQuery(catalog.PortfolioItemsSchema, catalog.PortfolioItemAPIFilters, r.URL.Query())
	rs, err := s.backend.ListPortfolioItems(r.Context(), q)
	if err != nil {
		s.writeBackendError(w, r, err, "portfolio items")
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// handleListPlatforms pages the full platform list in memory.
func (s *Server) handleListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := s.backend.ListPlatforms(r.Context())
	if err != nil {
		s.writeBackendError(w, r, err, "platforms")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = listctl.DefaultLimit
	}
	offset = min(max(offset, 0), len(platforms))
	end := min(offset+limit, len(platforms))

	page := append([]catalog.Platform{}, platforms[offset:end]...)
	writeJSON(w, http.StatusOK, listctl.ResultSet[catalog.Platform]{
		Items: page,
		Meta:  listctl.Meta{Count: len(platforms), Limit: limit, Offset: offset},
	})
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	var resp SchedulerStatusResponse
	if s.scheduler != nil {
		resp.Running = s.scheduler.IsRunning()
		resp.Sync = s.scheduler.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil || !s.scheduler.IsScheduled() {
		writeError(w, http.StatusNotFound, "No mirror sync is scheduled")
		return
	}
	if err := s.scheduler.TriggerSync(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
