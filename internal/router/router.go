package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kiwari-pos/terminal/internal/config"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/handler"
	mw "github.com/kiwari-pos/terminal/internal/middleware"
	"github.com/kiwari-pos/terminal/internal/ws"
	"go.uber.org/zap"
)

// Terminal is the lifecycle controller as seen by the HTTP layer.
type Terminal interface {
	handler.Terminal
	handler.ShiftTerminal
	SetOnline(online bool)
}

// New creates the terminal router: PIN login, the order and shift API,
// snapshot views and the websocket stream of snapshots and outcomes.
func New(cfg *config.Config, terminal Terminal, staff handler.AuthStore, hub *ws.Hub, logger *zap.Logger) chi.Router {
	r := base(cfg)

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(staff, cfg.BusinessID, cfg.JWTSecret, logger)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/businesses/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes, scoped to the configured business
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireBusiness(cfg.BusinessID))

		orderHandler := handler.NewOrderHandler(terminal, logger)
		r.Route("/orders", orderHandler.RegisterRoutes)

		shiftHandler := handler.NewShiftHandler(terminal, logger)
		r.Route("/shifts", shiftHandler.RegisterRoutes)

		statusHandler := handler.NewStatusHandler(terminal)
		statusHandler.RegisterRoutes(r)

		// Owner/manager routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleOwner, enum.RoleManager))
			statusHandler.RegisterSupervisorRoutes(r)
		})
	})

	logger.Info("terminal router initialized")
	return r
}

// NewRelay creates the relay router: health and the websocket fan-out of
// change-feed events.
func NewRelay(cfg *config.Config, hub *ws.Hub) chi.Router {
	r := base(cfg)
	r.Get("/ws/businesses/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})
	return r
}

func base(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})
	return r
}
