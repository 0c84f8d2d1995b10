package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/auth"
	"github.com/youthcamp/registration-api/internal/config"
)

type Handlers struct {
	Auth         *auth.AuthHandler
	Registration *RegistrationHandler
	Catalog      *CatalogHandler
	Admin        *AdminHandler
	APIKeys      *APIKeyHandler
	Gatherer     prometheus.Gatherer
}

func RegisterRoutes(r *chi.Mux, cfg *config.Config, h Handlers) huma.API {
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-API-KEY"},
			MaxAge:         300,
		}))
	}

	// Initialize Huma API
	humaConfig := huma.DefaultConfig("Youth Camp Registration API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.SessionCookie,
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: "X-API-KEY",
		},
	}
	api := humachi.New(r, humaConfig)
	adminOnly := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
		o.Tags = []string{"admin"}
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))

	// Registration form
	huma.Get(api, "/api/youth-groups", h.Catalog.HandleYouthGroups)
	huma.Get(api, "/api/allergies", h.Catalog.HandleAllergies)
	huma.Get(api, "/api/activities", h.Catalog.HandleActivities)
	huma.Get(api, "/api/accommodations", h.Catalog.HandleAccommodations)
	huma.Get(api, "/api/verify-code", h.Registration.HandleVerifyCode)
	huma.Post(api, "/api/register", h.Registration.HandleRegister)

	// Auth routes
	r.Get("/auth/discord/login", h.Auth.HandleLogin)
	r.Get("/auth/discord/callback", h.Auth.HandleCallback)

	// Admin routes
	huma.Get(api, "/admin/me", h.Auth.HandleMe, adminOnly)
	huma.Get(api, "/admin/registrations", h.Admin.HandleExport, adminOnly)
	huma.Post(api, "/admin/access-tokens", h.Admin.HandleCreateAccessToken, adminOnly)
	huma.Post(api, "/admin/api-keys", h.APIKeys.HandleCreate, adminOnly)
	huma.Get(api, "/admin/api-keys", h.APIKeys.HandleList, adminOnly)
	huma.Delete(api, "/admin/api-keys/{id}", h.APIKeys.HandleDelete, adminOnly)

	r.With(h.Auth.AuthMiddleware).Get("/admin/registrations.csv", h.Admin.HandleExportCSV)

	return api
}
