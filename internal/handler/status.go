package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/lifecycle"
	"github.com/kiwari-pos/terminal/internal/occupancy"
	"github.com/shopspring/decimal"
)

// StatusTerminal is the snapshot and connectivity surface of the controller.
type StatusTerminal interface {
	Snapshot() *lifecycle.Snapshot
	SetOnline(online bool)
}

// StatusHandler serves views of the terminal snapshot and takes the
// external connectivity signal.
type StatusHandler struct {
	terminal StatusTerminal
}

func NewStatusHandler(terminal StatusTerminal) *StatusHandler {
	return &StatusHandler{terminal: terminal}
}

func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Get("/tables", h.Tables)
}

// RegisterSupervisorRoutes registers the endpoints meant for owners and
// managers. The caller applies the role gate.
func (h *StatusHandler) RegisterSupervisorRoutes(r chi.Router) {
	r.Get("/violations", h.Violations)
	r.Post("/connectivity", h.Connectivity)
}

type statusResponse struct {
	Online            bool            `json:"online"`
	Degraded          bool            `json:"degraded"`
	Pending           int             `json:"pending"`
	UnattributedSales decimal.Decimal `json:"unattributed_sales"`
	Violations        int             `json:"violations"`
	Version           uint64          `json:"version"`
}

// Status handles GET /status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.terminal.Snapshot()
	writeJSON(w, http.StatusOK, statusResponse{
		Online:            snap.Online,
		Degraded:          snap.Degraded,
		Pending:           snap.Pending,
		UnattributedSales: snap.UnattributedSales,
		Violations:        len(snap.Violations),
		Version:           snap.Version,
	})
}

// Tables handles GET /tables.
func (h *StatusHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tables := h.terminal.Snapshot().Tables
	if tables == nil {
		tables = []occupancy.TableView{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": tables})
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

// Connectivity handles POST /connectivity. A reported outage holds until
// connectivity is reported back; the store ping does not end it.
func (h *StatusHandler) Connectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Online == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "online is required"})
		return
	}
	h.terminal.SetOnline(*req.Online)
	writeJSON(w, http.StatusAccepted, map[string]bool{"online": *req.Online})
}

type violationResponse struct {
	OrderID string  `json:"order_id"`
	TableID *string `json:"table_id,omitempty"`
	Reason  string  `json:"reason"`
}

// Violations handles GET /violations.
func (h *StatusHandler) Violations(w http.ResponseWriter, r *http.Request) {
	out := make([]violationResponse, 0)
	for _, v := range h.terminal.Snapshot().Violations {
		out = append(out, toViolationResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"violations": out})
}

func toViolationResponse(v domain.ConsistencyError) violationResponse {
	resp := violationResponse{OrderID: v.OrderID.String(), Reason: v.Reason}
	if v.TableID != nil {
		s := v.TableID.String()
		resp.TableID = &s
	}
	return resp
}
