package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// ReplayPort is the slice of the ledger engine the replay job needs.
type ReplayPort interface {
	ReplayOutstanding(ctx context.Context, partyID, itemID int64) (ledger.OutstandingBalance, error)
}

// LedgerReplayHandler processes ledger:replay tasks, typically enqueued after
// an opening-balance edit.
type LedgerReplayHandler struct {
	engine ReplayPort
	logger *slog.Logger
}

// NewLedgerReplayHandler builds the handler.
func NewLedgerReplayHandler(engine ReplayPort, logger *slog.Logger) *LedgerReplayHandler {
	return &LedgerReplayHandler{engine: engine, logger: logger}
}

// Handle re-derives the outstanding balance for the payload's key.
func (h *LedgerReplayHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LedgerReplayPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.PartyID <= 0 || payload.ItemID <= 0 {
		return asynq.SkipRetry
	}
	bal, err := h.engine.ReplayOutstanding(ctx, payload.PartyID, payload.ItemID)
	if err != nil {
		return err
	}
	h.logger.Info("ledger replay complete",
		slog.Int64("party_id", payload.PartyID),
		slog.Int64("item_id", payload.ItemID),
		slog.Float64("payment_due", bal.PaymentDue),
		slog.Float64("quantity_due", bal.QuantityDue))
	return nil
}
