package jobs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

type fakeReplayPort struct {
	calls [][2]int64
	err   error
}

func (f *fakeReplayPort) ReplayOutstanding(_ context.Context, partyID, itemID int64) (ledger.OutstandingBalance, error) {
	if f.err != nil {
		return ledger.OutstandingBalance{}, f.err
	}
	f.calls = append(f.calls, [2]int64{partyID, itemID})
	return ledger.OutstandingBalance{PartyID: partyID, ItemID: itemID, PaymentDue: 120}, nil
}

func TestLedgerReplayHandler(t *testing.T) {
	port := &fakeReplayPort{}
	handler := NewLedgerReplayHandler(port, slog.Default())

	task, err := NewLedgerReplayTask(LedgerReplayPayload{PartyID: 2, ItemID: 7})
	require.NoError(t, err)
	require.NoError(t, handler.Handle(context.Background(), task))
	require.Equal(t, [][2]int64{{2, 7}}, port.calls)
}

func TestLedgerReplayHandlerSkipsBadPayload(t *testing.T) {
	port := &fakeReplayPort{}
	handler := NewLedgerReplayHandler(port, slog.Default())

	err := handler.Handle(context.Background(), asynq.NewTask(TaskLedgerReplay, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewLedgerReplayTask(LedgerReplayPayload{PartyID: 0, ItemID: 7})
	require.NoError(t, err)
	err = handler.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, port.calls)
}
