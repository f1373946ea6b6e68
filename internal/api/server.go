package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/api/handler"
	mw "github.com/edvin/oportunia/internal/api/middleware"
	"github.com/edvin/oportunia/internal/config"
	"github.com/edvin/oportunia/internal/core"
	"github.com/edvin/oportunia/internal/model"
)

// Pinger reports database liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	db       Pinger
	cfg      *config.Config
}

func NewServer(logger zerolog.Logger, db Pinger, services *core.Services, cfg *config.Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
		db:       db,
		cfg:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
	s.router.Use(mw.CORS(s.cfg.CORSOrigins))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	auth := handler.NewAuth(s.services.Auth)
	s.router.Post("/auth/login", auth.Login)

	callback := handler.NewOAuthCallback(s.services.Connect, s.cfg.AppURL)
	s.router.Get("/oauth/callback", callback.Handle)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.services.Auth))

		r.Route("/admin/providers", func(r chi.Router) {
			r.Use(mw.RequireRole(model.RoleAdmin))

			provider := handler.NewProvider(s.services.ProviderConfig, s.services.Connect, strings.HasPrefix(s.cfg.AppURL, "https://"))
			r.Put("/payments/mode", provider.SetMode)
			r.Put("/payments/static-token", provider.SetStaticToken)
			r.Get("/{slot}", provider.Get)
			r.Put("/{slot}", provider.Save)
			r.Post("/{slot}/connect", provider.Connect)
			r.Get("/{slot}/status", provider.Status)
			r.Delete("/{slot}/connection", provider.Disconnect)
		})

		r.Route("/admin/subscriptions", func(r chi.Router) {
			r.Use(mw.RequireRole(model.RoleAdmin))

			subscriptionAdmin := handler.NewSubscriptionAdmin(s.services.SubscriptionAdmin)
			r.Put("/{userID}", subscriptionAdmin.Update)
		})

		niche := handler.NewNiche(s.services.Niche, s.services.History)
		r.Get("/categories", niche.Categories)
		r.Get("/categories/{id}", niche.Category)
		r.Get("/niches", niche.Search)
		r.Get("/history", niche.History)
		r.Delete("/history", niche.ClearHistory)

		favorites := handler.NewFavorites(s.services.Favorites)
		r.Get("/favorites", favorites.List)
		r.Post("/favorites", favorites.Toggle)
		r.Get("/favorites/{nicheID}", favorites.Status)

		campaign := handler.NewCampaign(s.services.Campaign)
		r.Post("/campaigns", campaign.Generate)

		subscription := handler.NewSubscription(s.services.Subscriptions, s.services.Gate)
		r.Get("/subscription", subscription.Get)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.db.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
