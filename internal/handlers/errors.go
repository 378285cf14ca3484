package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/logger"
	"github.com/diewo77/sales-portal/internal/services"
	"github.com/diewo77/sales-portal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// writeServiceError maps a domain error to its HTTP answer.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *services.ValidationError
	var te *services.InvalidTransitionError
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"reason": ve.Reason})
	case errors.As(err, &te):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_transition", map[string]string{
			"from":   string(te.From),
			"action": string(te.Action),
			"reason": te.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		var details any
		if reason := strings.TrimSuffix(err.Error(), ": "+services.ErrNotFound.Error()); reason != err.Error() {
			details = map[string]string{"reason": reason}
		}
		httpx.JSONError(w, http.StatusNotFound, "not_found", details)
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		httpx.JSONError(w, http.StatusConflict, "already_exists", nil)
	default:
		logger.FromContext(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func invalidJSON(w http.ResponseWriter) {
	httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
}

func violations(w http.ResponseWriter, v validation.Violations) {
	httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
}

// pathID reads a positive numeric path value. It answers 404 and returns
// false when the value is not a valid id.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return 0, false
	}
	return uint(id), true
}

// callerOf returns the caller stored by the auth gate. It answers 401 when
// there is none.
func callerOf(w http.ResponseWriter, r *http.Request) (*auth.Caller, bool) {
	c, ok := auth.CallerFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return nil, false
	}
	return c, true
}
