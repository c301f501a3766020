package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

const defaultIntegrityWindowDays = 7

// IntegrityPort is the read surface the integrity scan needs.
type IntegrityPort interface {
	CheckSnapshots(ctx context.Context, from, to time.Time) ([]ledger.SnapshotViolation, error)
}

// SnapshotIntegrityHandler processes the scheduled snapshot integrity scan.
// Violations are logged for operator follow-up; the job itself never mutates
// data.
type SnapshotIntegrityHandler struct {
	reader IntegrityPort
	logger *slog.Logger
}

// NewSnapshotIntegrityHandler builds the handler.
func NewSnapshotIntegrityHandler(reader IntegrityPort, logger *slog.Logger) *SnapshotIntegrityHandler {
	return &SnapshotIntegrityHandler{reader: reader, logger: logger}
}

// Handle scans the recent snapshot window for invariant violations.
func (h *SnapshotIntegrityHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SnapshotIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := payload.WindowDays
	if window <= 0 {
		window = defaultIntegrityWindowDays
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -window)

	violations, err := h.reader.CheckSnapshots(ctx, from, to)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		h.logger.Info("snapshot integrity scan clean", slog.Int("window_days", window))
		return nil
	}
	for _, v := range violations {
		h.logger.Warn("snapshot integrity violation",
			slog.Time("date", v.Date),
			slog.Int64("item_id", v.ItemID),
			slog.Int64("type_id", v.TypeID),
			slog.String("reason", v.Reason))
	}
	h.logger.Error("snapshot integrity scan found violations",
		slog.Int("count", len(violations)),
		slog.Int("window_days", window))
	return nil
}
