package procurement

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/platform/httpx"
	"github.com/freshmandi/freshmandi/internal/shared"
)

// Lister is the read surface for the listing endpoint.
type Lister interface {
	ListByDate(ctx context.Context, date time.Time) ([]ledger.ProcurementEntry, error)
	ListBySupplier(ctx context.Context, supplierID int64, from, to time.Time) ([]ledger.ProcurementEntry, error)
}

// Handler serves procurement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	lister  Lister
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, lister Lister) *Handler {
	return &Handler{logger: logger, service: service, lister: lister}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/procurements", h.submit)
	r.Get("/procurements", h.list)
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
		shared.RespondDomainError(w, h.logger, "procurement: submit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

// list serves both query forms: ?date= for one day across suppliers, and
// ?supplier_id=&from=&to= for one supplier across a date range.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("supplier_id") != "" {
		supplierID, err := strconv.ParseInt(q.Get("supplier_id"), 10, 64)
		if err != nil || supplierID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Supplier", "supplier_id must be a positive integer")
			return
		}
		from, to, ok := parseRange(w, q.Get("from"), q.Get("to"))
		if !ok {
			return
		}
		entries, err := h.lister.ListBySupplier(r.Context(), supplierID, from, to)
		if err != nil {
			shared.RespondDomainError(w, h.logger, "procurement: list by supplier", err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
		return
	}

	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "date must be YYYY-MM-DD")
		return
	}
	entries, err := h.lister.ListByDate(r.Context(), date)
	if err != nil {
		shared.RespondDomainError(w, h.logger, "procurement: list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func parseRange(w http.ResponseWriter, fromStr, toStr string) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "to must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		from, to = to, from
	}
	return from, to, true
}
