package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/daap14/tenantauth/internal/api/handler"
	"github.com/daap14/tenantauth/internal/api/middleware"
	"github.com/daap14/tenantauth/internal/eligibility"
	"github.com/daap14/tenantauth/internal/identity"
	"github.com/daap14/tenantauth/internal/metrics"
	"github.com/daap14/tenantauth/internal/workspace"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	HealthChecks map[string]handler.Pinger
	Version      string
	OpenAPISpec  []byte

	Identity    *identity.Service
	Workspaces  *workspace.Authority
	Eligibility *eligibility.Service

	// Metrics and LoginLimiter are optional.
	Metrics      *metrics.Collectors
	LoginLimiter *middleware.RateLimiter

	RequestTimeout time.Duration
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	if deps.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	healthHandler := handler.NewHealthHandler(deps.HealthChecks, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	authn := middleware.Auth(deps.Identity)
	authHandler := handler.NewAuthHandler(deps.Identity)
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.LoginLimiter != nil {
				r.Use(deps.LoginLimiter.Middleware)
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
			r.Post("/password", authHandler.ChangePassword)
			r.Get("/sessions", authHandler.Sessions)
		})
	})

	wsHandler := handler.NewWorkspaceHandler(deps.Workspaces, deps.Identity)
	modelHandler := handler.NewModelHandler(deps.Eligibility, deps.Identity)

	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Get("/models", modelHandler.Catalog)
		r.Post("/invites/accept", wsHandler.AcceptInvite)

		r.Route("/workspaces", func(r chi.Router) {
			r.Post("/", wsHandler.Create)
			r.Get("/", wsHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", wsHandler.GetByID)
				r.Delete("/", wsHandler.Delete)

				r.Get("/members", wsHandler.ListMembers)
				r.Patch("/members/{userId}", wsHandler.ChangeRole)
				r.Delete("/members/{userId}", wsHandler.RemoveMember)

				r.Post("/invites", wsHandler.CreateInvite)
				r.Get("/invites", wsHandler.ListInvites)

				r.With(middleware.RequirePermission(deps.Workspaces, workspace.PermModelView)).
					Get("/models", modelHandler.List)
				r.With(middleware.RequirePermission(deps.Workspaces, workspace.PermModelView)).
					Get("/models/eligible", modelHandler.Eligible)
				r.With(middleware.RequirePermission(deps.Workspaces, workspace.PermModelView)).
					Get("/models/{modelId}/eligibility", modelHandler.Eligibility)
				r.With(middleware.RequirePermission(deps.Workspaces, workspace.PermWorkspaceUpdate)).
					Put("/models/{modelId}", modelHandler.SetEnabled)
			})
		})
	})

	return r
}
