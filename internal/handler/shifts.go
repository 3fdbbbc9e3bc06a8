package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShiftTerminal is the shift surface of the lifecycle controller.
type ShiftTerminal interface {
	OpenShift(ctx context.Context, actor domain.Actor, staffID uuid.UUID, openingCash decimal.Decimal) (domain.Shift, error)
	CloseShift(ctx context.Context, actor domain.Actor, shiftID uuid.UUID, closingCash decimal.Decimal, notes string) (domain.Shift, error)
	CurrentShift(ctx context.Context, actor domain.Actor) (domain.Shift, error)
	RecentShifts(ctx context.Context, actor domain.Actor, limit int) ([]domain.Shift, error)
}

// ShiftHandler handles shift endpoints.
type ShiftHandler struct {
	terminal ShiftTerminal
	logger   *zap.Logger
}

func NewShiftHandler(terminal ShiftTerminal, logger *zap.Logger) *ShiftHandler {
	return &ShiftHandler{terminal: terminal, logger: logger}
}

// RegisterRoutes registers shift endpoints. Expected to be mounted at /shifts.
// Listing shifts is for owners and managers.
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.RoleOwner, enum.RoleManager)).Get("/", h.List)
	r.Post("/", h.Open)
	r.Get("/current", h.Current)
	r.Post("/{id}/close", h.Close)
}

// --- Request / Response types ---

type openShiftRequest struct {
	StaffID     *uuid.UUID      `json:"staff_id"` // defaults to the caller
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

type closeShiftRequest struct {
	ClosingCash *decimal.Decimal `json:"closing_cash"`
	Notes       string           `json:"notes"`
}

type shiftResponse struct {
	ID           uuid.UUID        `json:"id"`
	StaffID      uuid.UUID        `json:"staff_id"`
	Status       string           `json:"status"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at"`
	OpeningCash  decimal.Decimal  `json:"opening_cash"`
	ClosingCash  *decimal.Decimal `json:"closing_cash"`
	TotalSales   decimal.Decimal  `json:"total_sales"`
	OrderCount   int              `json:"order_count"`
	ExpectedCash decimal.Decimal  `json:"expected_cash"`
	Variance     *decimal.Decimal `json:"variance"`
	Notes        string           `json:"notes,omitempty"`
}

func toShiftResponse(s domain.Shift) shiftResponse {
	resp := shiftResponse{
		ID:           s.ID,
		StaffID:      s.StaffID,
		Status:       string(s.Status),
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		OpeningCash:  s.OpeningCash,
		ClosingCash:  s.ClosingCash,
		TotalSales:   s.TotalSales,
		OrderCount:   s.OrderCount,
		ExpectedCash: s.ExpectedCash(),
		Notes:        s.Notes,
	}
	if s.ClosingCash != nil {
		v := s.Variance()
		resp.Variance = &v
	}
	return resp
}

// --- Handlers ---

// List handles GET /shifts?status=closed&limit=10. Only closed shifts are
// listed; the open ones are served by /shifts/current.
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	if status := r.URL.Query().Get("status"); status != "" && enum.ShiftStatus(strings.ToUpper(status)) != enum.ShiftStatusClosed {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only status=closed is supported"})
		return
	}
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = v
	}
	if limit > 100 {
		limit = 100
	}

	shifts, err := h.terminal.RecentShifts(r.Context(), actor, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]shiftResponse, 0, len(shifts))
	for _, s := range shifts {
		out = append(out, toShiftResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"shifts": out})
}

// Open handles POST /shifts.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	var req openShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	staffID := uuid.Nil
	if req.StaffID != nil {
		staffID = *req.StaffID
	}
	s, err := h.terminal.OpenShift(r.Context(), actor, staffID, req.OpeningCash)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftResponse(s))
}

// Current handles GET /shifts/current.
func (h *ShiftHandler) Current(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	s, err := h.terminal.CurrentShift(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(s))
}

// Close handles POST /shifts/{id}/close.
func (h *ShiftHandler) Close(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}
	var req closeShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ClosingCash == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "closing_cash is required"})
		return
	}

	s, err := h.terminal.CloseShift(r.Context(), actor, id, *req.ClosingCash, req.Notes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftResponse(s))
}
