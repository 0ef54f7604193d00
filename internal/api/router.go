package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/washgeo/internal/api/handlers"
	"github.com/nikhilbhutani/washgeo/internal/api/middleware"
	"github.com/nikhilbhutani/washgeo/internal/assignment"
	"github.com/nikhilbhutani/washgeo/internal/auth"
	"github.com/nikhilbhutani/washgeo/internal/config"
	"github.com/nikhilbhutani/washgeo/internal/models"
)

type Router struct {
	mux       *chi.Mux
	cfg       *config.Config
	engine    *assignment.Engine
	jwt       *auth.JWTMiddleware
	auditLogs handlers.AuditLister
	health    *handlers.HealthHandler
	limiter   *middleware.RateLimiter
}

// NewRouter wires the HTTP surface. profiles authenticates callers; the
// engine's own directory is used for everything else.
func NewRouter(
	cfg *config.Config,
	engine *assignment.Engine,
	profiles auth.ProfileGetter,
	auditLogs handlers.AuditLister,
	health *handlers.HealthHandler,
) *Router {
	return &Router{
		mux:       chi.NewRouter(),
		cfg:       cfg,
		engine:    engine,
		jwt:       auth.NewJWTMiddleware(cfg.Auth.JWTSecret, profiles),
		auditLogs: auditLogs,
		health:    health,
		limiter:   middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
}

// Close stops background work started by the router.
func (rt *Router) Close() {
	rt.limiter.Stop()
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.CORS.AllowedOrigins))
	r.Use(rt.limiter.Limit)

	// Health endpoints (no auth)
	r.Get("/healthz", rt.health.Healthz)
	r.Get("/readyz", rt.health.Readyz)

	regionH := handlers.NewRegionHandler(rt.engine.Resolver().Regions())
	assignH := handlers.NewAssignmentHandler(rt.engine)
	adminH := handlers.NewAdminHandler(rt.engine, rt.auditLogs)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)
		r.Use(middleware.ClientIP)

		r.Route("/regions", func(r chi.Router) {
			r.Get("/cities", regionH.Cities)
			r.Get("/cities/{city}/talukas", regionH.Talukas)
			r.Get("/talukas/{taluka}/city", regionH.CityOf)
		})

		r.Get("/me/permissions", assignH.Permissions)
		r.Get("/subordinates", assignH.Subordinates)
		r.Get("/users", assignH.Users)

		r.Route("/assignments/{userID}", func(r chi.Router) {
			r.With(auth.RequireRole(models.RoleAdmin, models.RoleGeneral)).Put("/cities", assignH.AssignCities)
			r.With(auth.RequireRole(models.RoleAdmin, models.RoleSubGeneral)).Put("/talukas", assignH.AssignTalukas)
			r.With(auth.RequireRole(models.RoleAdmin, models.RoleHRGeneral)).Put("/areas", assignH.AssignAreas)
			r.Get("/{role}", assignH.Get)
			r.Delete("/{role}", assignH.Revoke)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/reconcile", adminH.Reconcile)
			r.Get("/audit", adminH.AuditLogs)
		})
	})

	return r
}
