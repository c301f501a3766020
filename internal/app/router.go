package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/freshmandi/freshmandi/internal/damage"
	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/masterdata"
	"github.com/freshmandi/freshmandi/internal/observability"
	"github.com/freshmandi/freshmandi/internal/payment"
	"github.com/freshmandi/freshmandi/internal/procurement"
	"github.com/freshmandi/freshmandi/internal/reports"
	"github.com/freshmandi/freshmandi/internal/sales"
	"github.com/freshmandi/freshmandi/internal/session"
	"github.com/freshmandi/freshmandi/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	MasterDataHandler  *masterdata.Handler
	SessionHandler     *session.Handler
	ProcurementHandler *procurement.Handler
	SalesHandler       *sales.Handler
	DamageHandler      *damage.Handler
	PaymentHandler     *payment.Handler
	ReportsHandler     *reports.Handler
	LedgerHandler      *ledger.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.MasterDataHandler != nil {
		params.MasterDataHandler.MountRoutes(r)
	}
	if params.SessionHandler != nil {
		params.SessionHandler.MountRoutes(r)
	}
	if params.ProcurementHandler != nil {
		params.ProcurementHandler.MountRoutes(r)
	}
	if params.SalesHandler != nil {
		params.SalesHandler.MountRoutes(r)
	}
	if params.DamageHandler != nil {
		params.DamageHandler.MountRoutes(r)
	}
	if params.PaymentHandler != nil {
		params.PaymentHandler.MountRoutes(r)
	}
	if params.ReportsHandler != nil {
		params.ReportsHandler.MountRoutes(r)
	}
	if params.LedgerHandler != nil {
		params.LedgerHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
