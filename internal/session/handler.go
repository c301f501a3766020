package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshmandi/freshmandi/internal/platform/httpx"
)

// Store is the persistence surface the handler needs.
type Store interface {
	Open(ctx context.Context, date time.Time) (TradingSession, error)
	Close(ctx context.Context, id int64) (TradingSession, error)
	Get(ctx context.Context, id int64) (TradingSession, error)
	List(ctx context.Context, limit int) ([]TradingSession, error)
}

// Handler serves the trading session endpoints.
type Handler struct {
	logger *slog.Logger
	store  Store
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, store Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers session routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.open)
		r.Get("/{id}", h.get)
		r.Post("/{id}/close", h.close)
	})
}

type openRequest struct {
	Date string `json:"date"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "date must be YYYY-MM-DD")
		return
	}
	s, err := h.store.Open(r.Context(), date)
	if err != nil {
		h.fail(w, "open session", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, s)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "numeric id required")
		return
	}
	s, err := h.store.Close(r.Context(), id)
	if err != nil {
		h.fail(w, "close session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "numeric id required")
		return
	}
	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.fail(w, "list sessions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyOpen) || errors.Is(err, ErrAlreadyClosed):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("session: "+op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
