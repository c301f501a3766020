package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshmandi/freshmandi/internal/platform/httpx"
	"github.com/freshmandi/freshmandi/internal/shared"
)

// Handler serves the report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/stock", h.stock)
		r.Get("/balance", h.balance)
		r.Get("/ledger", h.ledgerHistory)
	})
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return
	}
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	stocks, err := h.service.Stock(r.Context(), itemID, date)
	if err != nil {
		shared.RespondDomainError(w, h.logger, "reports: stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID, "stocks": stocks})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	partyID, ok := queryID(w, r, "party_id")
	if !ok {
		return
	}
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return
	}
	view, err := h.service.Balance(r.Context(), partyID, itemID)
	if err != nil {
		shared.RespondDomainError(w, h.logger, "reports: balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) ledgerHistory(w http.ResponseWriter, r *http.Request) {
	partyID, ok := queryID(w, r, "party_id")
	if !ok {
		return
	}
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "to must be YYYY-MM-DD")
		return
	}
	lines, err := h.service.Ledger(r.Context(), partyID, itemID, from, to)
	if err != nil {
		shared.RespondDomainError(w, h.logger, "reports: ledger", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
