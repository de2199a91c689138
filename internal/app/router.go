package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/auth"
	"github.com/cacaoflow/cacaoflow/internal/batch"
	"github.com/cacaoflow/cacaoflow/internal/dashboard"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
	"github.com/cacaoflow/cacaoflow/internal/observability"
	"github.com/cacaoflow/cacaoflow/internal/shared"
	"github.com/cacaoflow/cacaoflow/internal/staff"
	"github.com/cacaoflow/cacaoflow/internal/weather"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	AuthHandler      *auth.Handler
	BatchHandler     *batch.Handler
	EquipmentHandler *equipment.Handler
	AuditHandler     *auditlog.Handler
	StaffHandler     *staff.Handler
	WeatherHandler   *weather.Handler
	DashboardHandler *dashboard.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with CacaoFlow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireActor)

		r.Route("/batches", func(r chi.Router) {
			params.BatchHandler.MountRoutes(r)
		})
		r.Route("/processes", func(r chi.Router) {
			params.BatchHandler.MountProcessRoutes(r)
		})
		r.Route("/equipment", func(r chi.Router) {
			params.EquipmentHandler.MountRoutes(r)
		})
		r.Route("/logs", func(r chi.Router) {
			params.AuditHandler.MountRoutes(r)
		})
		r.Route("/staff", func(r chi.Router) {
			params.StaffHandler.MountRoutes(r)
		})
		r.Route("/weather", func(r chi.Router) {
			params.WeatherHandler.MountRoutes(r)
		})
		r.Route("/dashboard", func(r chi.Router) {
			params.DashboardHandler.MountRoutes(r)
		})
	})

	return r
}
