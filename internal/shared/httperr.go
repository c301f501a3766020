package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/masterdata"
	"github.com/freshmandi/freshmandi/internal/platform/httpx"
)

// ErrValidation wraps request-shape failures from the event services.
var ErrValidation = errors.New("validation failed")

// RespondDomainError maps the domain sentinels shared by the event modules to
// problem responses. Unknown errors are logged and reported as 500 without
// leaking detail.
func RespondDomainError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ledger.ErrInvalidDate),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidRate),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrNoLineItems),
		errors.Is(err, ledger.ErrEmptyPayment),
		errors.Is(err, ledger.ErrTypeLabelRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrReturnExceedsDamage):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Return", err.Error())
	case errors.Is(err, masterdata.ErrRoleMismatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Role Mismatch", err.Error())
	case errors.Is(err, ledger.ErrItemTypeMismatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Type Mismatch", err.Error())
	case errors.Is(err, masterdata.ErrFractionalQuantity):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Fractional Quantity", err.Error())
	case errors.Is(err, masterdata.ErrItemNotFound),
		errors.Is(err, masterdata.ErrPartyNotFound),
		errors.Is(err, ledger.ErrItemTypeNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Submission", err.Error())
	case errors.Is(err, ledger.ErrSessionNotOpen):
		httpx.Problem(w, http.StatusConflict, "Session Closed", err.Error())
	default:
		if logger != nil {
			logger.Error(op, slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
