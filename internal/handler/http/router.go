package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emerginginv/crm-notifications/internal/config"
	"github.com/emerginginv/crm-notifications/internal/service"
	"github.com/emerginginv/crm-notifications/pkg/health"
	"github.com/emerginginv/crm-notifications/pkg/middleware"
)

// NewRouter creates a chi router with all notification service routes registered.
func NewRouter(
	cfg *config.Config,
	notificationService *service.NotificationService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: cfg.CORSAllowedMethods,
		AllowedHeaders: cfg.CORSAllowedHeaders,
		ExposedHeaders: []string{"X-Correlation-ID", "X-User-ID"},
		MaxAge:         cfg.CORSMaxAge,
		Environment:    cfg.Environment,
	}))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("notification"))
	r.Use(middleware.Tracing("notification"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	// Notification feed API endpoints
	notificationHandler := NewNotificationHandler(notificationService, logger)

	r.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.ListNotifications)
			r.Delete("/", notificationHandler.ClearAll)

			r.Get("/unread-count", notificationHandler.UnreadCount)
			r.Put("/read-all", notificationHandler.MarkAllAsRead)
			r.Post("/recompute", notificationHandler.Recompute)

			r.Put("/{id}/read", notificationHandler.MarkAsRead)
			r.Delete("/{id}", notificationHandler.DeleteNotification)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", notificationHandler.GetPreferences)
			r.Patch("/", notificationHandler.UpdatePreferences)
		})
	})

	return r
}
