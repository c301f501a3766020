package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freshmandi/freshmandi/internal/platform/httpx"
)

// Handler serves the master data JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Post("/", h.createItem)
		r.Get("/{id}", h.getItem)
		r.Put("/{id}", h.updateItem)
		r.Delete("/{id}", h.deactivateItem)
	})
	r.Route("/parties", func(r chi.Router) {
		r.Get("/", h.listParties)
		r.Post("/", h.createParty)
		r.Get("/{id}", h.getParty)
		r.Put("/{id}", h.updateParty)
		r.Delete("/{id}", h.deactivateParty)
	})
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.service.ListItems(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.fail(w, "list items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.fail(w, "get item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var item Item
	if err := httpx.DecodeJSON(r, &item); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	created, err := h.service.CreateItem(r.Context(), item)
	if err != nil {
		h.fail(w, "create item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var item Item
	if err := httpx.DecodeJSON(r, &item); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.service.UpdateItem(r.Context(), id, item); err != nil {
		h.fail(w, "update item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) deactivateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateItem(r.Context(), id); err != nil {
		h.fail(w, "deactivate item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	parties, total, err := h.service.ListParties(r.Context(), filtersFromQuery(r))
	if err != nil {
		h.fail(w, "list parties", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"parties": parties, "total": total})
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	party, err := h.service.GetParty(r.Context(), id)
	if err != nil {
		h.fail(w, "get party", err)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var party Party
	if err := httpx.DecodeJSON(r, &party); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	created, err := h.service.CreateParty(r.Context(), party)
	if err != nil {
		h.fail(w, "create party", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var party Party
	if err := httpx.DecodeJSON(r, &party); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.service.UpdateParty(r.Context(), id, party); err != nil {
		h.fail(w, "update party", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) deactivateParty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateParty(r.Context(), id); err != nil {
		h.fail(w, "deactivate party", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrPartyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNameRequired) || errors.Is(err, ErrInvalidRole) || errors.Is(err, ErrInvalidKind):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrRoleMismatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Role Mismatch", err.Error())
	default:
		h.logger.Error("masterdata: "+op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func filtersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return ListFilters{
		Search: q.Get("q"),
		Role:   PartyRole(q.Get("role")),
		Limit:  limit,
		Offset: offset,
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "numeric id required")
		return 0, false
	}
	return id, true
}
