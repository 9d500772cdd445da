package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/service"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/health"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httputil"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/middleware"
)

// RouterConfig holds the HTTP-facing settings of the router.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	Cookies     CookieConfig

	// AuthLimiter throttles the public auth endpoints per client IP. Nil
	// disables it.
	AuthLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(
	authService *service.AuthService,
	diaryService *service.DiaryService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteFail(w, http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", r.URL.RequestURI()))
	})

	// Health check endpoints
	r.Get("/health", healthHandler.PingHandler())
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	protect := Protect(authService)
	authHandler := NewAuthHandler(authService, cfg.Cookies, logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		// Public endpoints
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Handler)
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/google", authHandler.Google)
			r.Post("/facebook", authHandler.Facebook)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Logout accepts any body so the cookie is always cleared.
		r.Post("/logout", authHandler.Logout)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(protect)
			r.Get("/me", authHandler.Me)
			r.Patch("/password", authHandler.ChangePassword)
		})
	})

	diaryHandler := NewDiaryHandler(diaryService, logger)
	r.Route("/api/v1/diaries", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(protect)

		r.Get("/", diaryHandler.List)
		r.Post("/", diaryHandler.Create)
		r.Get("/{id}", diaryHandler.Get)
		r.Delete("/{id}", diaryHandler.Delete)

		r.Get("/{diaryId}/entries", diaryHandler.ListEntries)
		r.Post("/{diaryId}/entries", diaryHandler.CreateEntry)
		r.Get("/{diaryId}/entries/{id}", diaryHandler.GetEntry)
		r.Patch("/{diaryId}/entries/{id}", diaryHandler.UpdateEntry)
		r.Delete("/{diaryId}/entries/{id}", diaryHandler.DeleteEntry)
	})

	return r
}
