package procurement

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

type stubLister struct {
	byDate     []ledger.ProcurementEntry
	bySupplier []ledger.ProcurementEntry

	gotSupplierID int64
	gotFrom       time.Time
	gotTo         time.Time
}

func (s *stubLister) ListByDate(_ context.Context, _ time.Time) ([]ledger.ProcurementEntry, error) {
	return s.byDate, nil
}

func (s *stubLister) ListBySupplier(_ context.Context, supplierID int64, from, to time.Time) ([]ledger.ProcurementEntry, error) {
	s.gotSupplierID, s.gotFrom, s.gotTo = supplierID, from, to
	return s.bySupplier, nil
}

func newTestRouter(lister Lister) http.Handler {
	h := NewHandler(slog.Default(), NewService(&fakeLedger{}, &fakeRefs{}, nil, nil), lister)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func listEntries(t *testing.T, router http.Handler, target string) (int, []ledger.ProcurementEntry) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusOK {
		return rec.Code, nil
	}
	var body struct {
		Entries []ledger.ProcurementEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body.Entries
}

func TestListByDate(t *testing.T) {
	lister := &stubLister{byDate: []ledger.ProcurementEntry{{ID: 1, SupplierID: 3}}}
	router := newTestRouter(lister)

	code, entries := listEntries(t, router, "/procurements?date=2026-03-01")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, entries, 1)
	require.Equal(t, int64(3), entries[0].SupplierID)

	code, _ = listEntries(t, router, "/procurements?date=01-03-2026")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestListBySupplierRange(t *testing.T) {
	lister := &stubLister{bySupplier: []ledger.ProcurementEntry{{ID: 1, SupplierID: 3}, {ID: 2, SupplierID: 3}}}
	router := newTestRouter(lister)

	code, entries := listEntries(t, router, "/procurements?supplier_id=3&from=2026-03-01&to=2026-03-07")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, entries, 2)
	require.Equal(t, int64(3), lister.gotSupplierID)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), lister.gotFrom)
	require.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), lister.gotTo)
}

func TestListBySupplierSwapsInvertedRange(t *testing.T) {
	lister := &stubLister{}
	router := newTestRouter(lister)

	code, _ := listEntries(t, router, "/procurements?supplier_id=3&from=2026-03-07&to=2026-03-01")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), lister.gotFrom)
	require.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), lister.gotTo)
}

func TestListBySupplierValidation(t *testing.T) {
	router := newTestRouter(&stubLister{})

	code, _ := listEntries(t, router, "/procurements?supplier_id=abc&from=2026-03-01&to=2026-03-07")
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = listEntries(t, router, "/procurements?supplier_id=3&to=2026-03-07")
	require.Equal(t, http.StatusBadRequest, code)
}
