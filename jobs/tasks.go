package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerReplay re-derives one outstanding balance from its events.
	TaskLedgerReplay = "ledger:replay"
	// TaskSnapshotIntegrity scans daily snapshots for invariant violations.
	TaskSnapshotIntegrity = "ledger:snapshot_integrity"
)

// LedgerReplayPayload identifies the balance to replay.
type LedgerReplayPayload struct {
	PartyID int64 `json:"party_id"`
	ItemID  int64 `json:"item_id"`
}

// NewLedgerReplayTask constructs the replay task.
func NewLedgerReplayTask(payload LedgerReplayPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReplay, data), nil
}

// SnapshotIntegrityPayload bounds the scan window in days back from today.
// Zero means the default window.
type SnapshotIntegrityPayload struct {
	WindowDays int `json:"window_days"`
}

// NewSnapshotIntegrityTask constructs the integrity scan task.
func NewSnapshotIntegrityTask(payload SnapshotIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotIntegrity, data), nil
}
