// Package router arma el árbol de rutas del servicio sobre chi.
package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/comfygate/internal/cache"
	"github.com/dropDatabas3/comfygate/internal/config"
	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	adminctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/admin"
	authctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/health"
	tasksctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/tasks"
	httperrors "github.com/dropDatabas3/comfygate/internal/http/errors"
	"github.com/dropDatabas3/comfygate/internal/http/metrics"
	"github.com/dropDatabas3/comfygate/internal/http/middlewares"
	"github.com/dropDatabas3/comfygate/internal/jwt"
	"github.com/dropDatabas3/comfygate/internal/rate"
)

// Deps contiene todo lo que el router necesita para montar las rutas.
type Deps struct {
	Cfg    *config.Config
	Cache  cache.Client
	Issuer *jwt.Issuer

	Auth   *authctrl.Controller
	Tasks  *tasksctrl.Controller
	Admin  *adminctrl.Controller
	Health *healthctrl.Controller

	// LoginLimiter protege /v1/auth/login. nil deshabilita.
	LoginLimiter rate.Limiter

	// Metrics es el handler de /metrics. nil deshabilita el endpoint.
	Metrics http.Handler

	// StaticRoot es el directorio raíz del archivo de imágenes, servido
	// bajo /static/images/. Vacío deshabilita la ruta.
	StaticRoot string

	// Tenants alimenta el middleware de X-API-Key.
	Tenants repository.TenantRepository

	// TenantCacheTTL es cuánto vive un tenant en cache tras un hit de DB.
	TenantCacheTTL time.Duration
}

// New construye el handler raíz con middlewares globales y todas las rutas.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middlewares.WithRequestID)
	r.Use(middlewares.WithRecover)
	r.Use(metrics.WithMetrics)
	r.Use(middlewares.WithLogging)
	r.Use(middlewares.WithCORS(d.Cfg.Server.CORSAllowedOrigins))

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", d.Auth.Register)
		r.With(middlewares.WithRateLimit(d.LoginLimiter)).Post("/login", d.Auth.Login)
		r.With(middlewares.RequireSession(d.Issuer)).Get("/me", d.Auth.Me)
	})

	r.Route("/v1/tasks", func(r chi.Router) {
		r.Use(middlewares.RequireSession(d.Issuer))
		r.Post("/", d.Tasks.Create)
		r.Get("/", d.Tasks.List)
		r.Get("/{tenantTaskID}", d.Tasks.Get)
		r.Post("/{tenantTaskID}/complete", d.Tasks.Complete)
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(middlewares.RequireAdminKey(d.Cfg.Admin.APIKey))
		r.Post("/tenants", d.Admin.CreateTenant)
		r.Get("/tenants/{id}", d.Admin.GetTenant)
		r.Get("/tenants/{id}/usage", d.Admin.ListUsage)
		r.Post("/archive/resync", d.Admin.ResyncArchive)
	})

	r.With(middlewares.RequireTenantAPIKey(d.Tenants, d.Cache, d.TenantCacheTTL)).
		Get("/v1/tenant/me", d.Admin.TenantMe)

	if d.StaticRoot != "" {
		r.Handle("/static/images/*", staticImages(d.StaticRoot))
	}

	return r
}

// staticImages sirve el archivo de imágenes en modo solo-archivos: los
// directorios no se listan y cualquier path con ".." se rechaza.
func staticImages(root string) http.Handler {
	fs := http.StripPrefix("/static/images/", http.FileServer(http.Dir(root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.Contains(p, "..") || strings.HasSuffix(p, "/") {
			httperrors.WriteError(w, r, httperrors.ErrNotFound)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
