package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	sessions map[int64]TradingSession
	openErr  error
	closeErr error
}

func newStubStore() *stubStore {
	return &stubStore{sessions: map[int64]TradingSession{}}
}

func (s *stubStore) Open(_ context.Context, date time.Time) (TradingSession, error) {
	if s.openErr != nil {
		return TradingSession{}, s.openErr
	}
	sess := TradingSession{
		ID:       int64(len(s.sessions) + 1),
		Date:     date,
		Status:   StatusOpen,
		OpenedAt: time.Now(),
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *stubStore) Close(_ context.Context, id int64) (TradingSession, error) {
	if s.closeErr != nil {
		return TradingSession{}, s.closeErr
	}
	sess, ok := s.sessions[id]
	if !ok {
		return TradingSession{}, ErrNotFound
	}
	sess.Status = StatusClosed
	s.sessions[id] = sess
	return sess, nil
}

func (s *stubStore) Get(_ context.Context, id int64) (TradingSession, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return TradingSession{}, ErrNotFound
	}
	return sess, nil
}

func (s *stubStore) List(_ context.Context, _ int) ([]TradingSession, error) {
	out := make([]TradingSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out, nil
}

func newTestRouter(store Store) http.Handler {
	r := chi.NewRouter()
	NewHandler(slog.Default(), store).MountRoutes(r)
	return r
}

func TestOpenAndCloseSession(t *testing.T) {
	store := newStubStore()
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"date":"2026-03-01"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var opened TradingSession
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &opened))
	require.Equal(t, StatusOpen, opened.Status)

	req = httptest.NewRequest(http.MethodPost, "/sessions/1/close", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var closed TradingSession
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &closed))
	require.Equal(t, StatusClosed, closed.Status)
}

func TestOpenRejectsBadDate(t *testing.T) {
	router := newTestRouter(newStubStore())

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"date":"01-03-2026"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSecondOpenSameDayConflicts(t *testing.T) {
	store := newStubStore()
	store.openErr = ErrAlreadyOpen
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"date":"2026-03-01"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestGetMissingSession(t *testing.T) {
	router := newTestRouter(newStubStore())

	req := httptest.NewRequest(http.MethodGet, "/sessions/42", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
