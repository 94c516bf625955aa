package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterOptions holds what the router needs besides the handlers
type RouterOptions struct {
	AllowedOrigins []string
	Metrics        http.Handler
	SwaggerFile    string
}

// NewRouter wires every route of the bridge
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health", h.Health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	// Swagger documentation
	if opts.SwaggerFile != "" {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, opts.SwaggerFile)
		})
	}

	// OAuth routes
	r.Get("/oauth/start", h.OAuthStart)
	r.Post("/oauth/start", h.OAuthStart)
	r.Get("/oauth/callback", h.OAuthCallback)

	r.Post("/sso", h.SSO)
	r.Get("/api/status", h.Status)

	r.Post("/webhooks/app-uninstalled", h.AppUninstalledWebhook)

	return r
}
