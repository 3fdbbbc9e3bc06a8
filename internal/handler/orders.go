package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/lifecycle"
	"github.com/kiwari-pos/terminal/internal/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Terminal is the lifecycle surface the HTTP layer drives.
// Satisfied by *lifecycle.Controller; narrow interface for testability.
type Terminal interface {
	Snapshot() *lifecycle.Snapshot
	Do(ctx context.Context, actor domain.Actor, action lifecycle.Action, orderID uuid.UUID, expected enum.OrderStatus) (lifecycle.CommandResult, error)
	CreateOrder(ctx context.Context, actor domain.Actor, req domain.NewOrder) (domain.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	terminal Terminal
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(terminal Terminal, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{terminal: terminal, logger: logger}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/{action}", h.Transition)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType string                   `json:"order_type"`
	TableID   string                   `json:"table_id"`
	Notes     string                   `json:"notes"`
	Customer  *domain.CustomerInfo     `json:"customer"`
	Items     []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type transitionRequest struct {
	ExpectedStatus enum.OrderStatus `json:"expected_status"`
}

type orderListResponse struct {
	Orders  []domain.Order `json:"orders"`
	Online  bool           `json:"online"`
	Version uint64         `json:"version"`
}

// --- Handlers ---

// List handles GET /orders. Optional filters: ?status=READY, ?active=true.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.terminal.Snapshot()
	status := enum.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	orders := make([]domain.Order, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		if status != "" && o.Status != status {
			continue
		}
		if activeOnly && !o.Status.IsActive() {
			continue
		}
		orders = append(orders, o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: orders, Online: snap.Online, Version: snap.Version})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	o, ok := h.terminal.Snapshot().Order(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Create handles POST /orders. Terminal orders start as NEW.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	newOrder := domain.NewOrder{
		Status:    enum.OrderStatusNew,
		OrderType: enum.OrderType(req.OrderType),
		Customer:  req.Customer,
		Notes:     req.Notes,
		Items:     make([]domain.LineItem, len(req.Items)),
	}
	for i, item := range req.Items {
		newOrder.Items[i] = domain.LineItem{Name: item.Name, UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}
	if req.TableID != "" {
		tableID, err := uuid.Parse(req.TableID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		newOrder.TableID = &tableID
	}

	order, err := h.terminal.CreateOrder(r.Context(), actor, newOrder)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Transition handles POST /orders/{id}/{action}. A write the store
// acknowledged answers 200; a write queued while offline answers 202.
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	action, ok := lifecycle.ParseAction(chi.URLParam(r, "action"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !req.ExpectedStatus.IsValid() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "expected_status is required"})
		return
	}

	result, err := h.terminal.Do(r.Context(), actor, action, id, req.ExpectedStatus)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if result.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}
