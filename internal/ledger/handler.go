package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshmandi/freshmandi/internal/platform/httpx"
)

// ReplayEnqueuer schedules an outstanding-balance replay in the background.
type ReplayEnqueuer interface {
	EnqueueLedgerReplay(ctx context.Context, partyID, itemID int64) error
}

// Handler serves the opening-balance endpoint. Posting events goes through
// the per-event modules; this handler owns the one ledger-level mutation.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	enqueuer ReplayEnqueuer
}

// NewHandler builds Handler. enqueuer may be nil; edits then apply without a
// background replay.
func NewHandler(logger *slog.Logger, engine *Engine, enqueuer ReplayEnqueuer) *Handler {
	return &Handler{logger: logger, engine: engine, enqueuer: enqueuer}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/opening-balances", h.setOpeningBalance)
}

type openingBalanceRequest struct {
	PartyID     int64   `json:"party_id"`
	ItemID      int64   `json:"item_id"`
	PaymentDue  float64 `json:"payment_due"`
	QuantityDue float64 `json:"quantity_due"`
	AsOf        string  `json:"as_of"`
}

// setOpeningBalance upserts an opening balance. Existing history is not
// patched in place; a replay is enqueued to re-derive the outstanding row
// from the new base.
func (h *Handler) setOpeningBalance(w http.ResponseWriter, r *http.Request) {
	var req openingBalanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if req.PartyID <= 0 || req.ItemID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "party_id and item_id required")
		return
	}
	asOf, err := time.Parse("2006-01-02", req.AsOf)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "as_of must be YYYY-MM-DD")
		return
	}

	ob, err := h.engine.SetOpeningBalance(r.Context(), req.PartyID, req.ItemID, req.PaymentDue, req.QuantityDue, asOf)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("ledger: set opening balance", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	replayEnqueued := false
	if h.enqueuer != nil {
		if err := h.enqueuer.EnqueueLedgerReplay(r.Context(), req.PartyID, req.ItemID); err != nil {
			h.logger.Error("ledger: enqueue replay",
				slog.Int64("party_id", req.PartyID),
				slog.Int64("item_id", req.ItemID),
				slog.Any("error", err))
		} else {
			replayEnqueued = true
		}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"opening_balance": map[string]any{
			"party_id":     ob.PartyID,
			"item_id":      ob.ItemID,
			"payment_due":  ob.PaymentDue,
			"quantity_due": ob.QuantityDue,
			"as_of":        ob.SetOn.Format("2006-01-02"),
		},
		"replay_enqueued": replayEnqueued,
	})
}
