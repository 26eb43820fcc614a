// Package respond writes JSON responses and maps domain errors to status
// codes for every HTTP handler.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

func JSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Error(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	JSON(w, logger, status, map[string]string{"error": message})
}

type validationBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Status returns the HTTP status for err. Unknown errors are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAvailable),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrStatusChanged):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// DomainError writes err with its mapped status. Infrastructure errors are
// logged and replaced by a generic message.
func DomainError(w http.ResponseWriter, logger *slog.Logger, err error, attrs ...any) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", append(attrs, "error", err)...)
		Error(w, logger, status, "internal server error")
		return
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		JSON(w, logger, status, validationBody{Error: verr.Message, Fields: verr.Fields})
		return
	}

	Error(w, logger, status, message(err))
}

func message(err error) string {
	var (
		notFound    *domain.ListingNotFoundError
		stock       *domain.InsufficientStockError
		unavailable *domain.NotAvailableError
		transition  *domain.InvalidTransitionError
		validation  *domain.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &stock):
		return stock.Error()
	case errors.As(err, &unavailable):
		return unavailable.Error()
	case errors.As(err, &transition):
		return transition.Error()
	case errors.As(err, &validation):
		return validation.Error()
	case errors.Is(err, domain.ErrStatusChanged):
		return domain.ErrStatusChanged.Error()
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrNotFound.Error()
	default:
		return err.Error()
	}
}
