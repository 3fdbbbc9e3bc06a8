package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/auth"
	"github.com/kiwari-pos/terminal/internal/database"
	"github.com/kiwari-pos/terminal/internal/enum"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	ListStaffWithPin(ctx context.Context, businessID uuid.UUID) ([]database.Staff, error)
}

// AuthHandler handles staff login at the terminal.
type AuthHandler struct {
	store      AuthStore
	businessID uuid.UUID
	jwtSecret  string
	ttl        time.Duration
	logger     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, businessID uuid.UUID, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, businessID: businessID, jwtSecret: jwtSecret, ttl: auth.DefaultTTL, logger: logger}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/pin-login", h.PinLogin)
}

// --- Request / Response types ---

type pinLoginRequest struct {
	Pin string `json:"pin"`
}

type tokenResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int           `json:"expires_in"`
	Staff       staffResponse `json:"staff"`
}

type staffResponse struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	StaffName  string    `json:"staff_name"`
	Role       enum.Role `json:"role"`
}

// --- Handlers ---

// PinLogin signs in a staff member of this terminal's business by PIN.
// PINs are stored as bcrypt hashes, so every active staff hash is tried.
func (h *AuthHandler) PinLogin(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Pin == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pin is required"})
		return
	}

	staff, err := h.store.ListStaffWithPin(r.Context(), h.businessID)
	if err != nil {
		h.logger.Error("list staff for pin login", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store unreachable"})
		return
	}

	for _, s := range staff {
		if bcrypt.CompareHashAndPassword([]byte(s.PinHash.String), []byte(req.Pin)) != nil {
			continue
		}
		role := enum.Role(s.Role)
		token, err := auth.GenerateToken(h.jwtSecret, s.ID, s.BusinessID, role, h.ttl)
		if err != nil {
			h.logger.Error("generate token", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		h.logger.Info("staff signed in", zap.String("staff_id", s.ID.String()), zap.String("role", s.Role))
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: token,
			ExpiresIn:   int(h.ttl.Seconds()),
			Staff: staffResponse{
				ID:         s.ID,
				BusinessID: s.BusinessID,
				StaffName:  s.StaffName,
				Role:       role,
			},
		})
		return
	}

	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}
