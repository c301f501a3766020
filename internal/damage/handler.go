package damage

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/platform/httpx"
	"github.com/freshmandi/freshmandi/internal/shared"
)

// Lister is the read surface for the day listing endpoint.
type Lister interface {
	ListByDate(ctx context.Context, date time.Time) ([]ledger.DamageEntry, error)
}

// Handler serves damage endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	lister  Lister
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, lister Lister) *Handler {
	return &Handler{logger: logger, service: service, lister: lister}
}

// MountRoutes registers damage routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/damages", h.submit)
	r.Get("/damages", h.list)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}
	entry, err := h.service.Submit(r.Context(), req)
	if err != nil {
		shared.RespondDomainError(w, h.logger, "damage: submit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "date must be YYYY-MM-DD")
		return
	}
	entries, err := h.lister.ListByDate(r.Context(), date)
	if err != nil {
		shared.RespondDomainError(w, h.logger, "damage: list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
