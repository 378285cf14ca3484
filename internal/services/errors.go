package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/sales-portal/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist or is
	// outside the caller's visibility.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller may see a record but not act on it.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports unusable input such as an unknown product or a
// missing price. It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports an order workflow action that is not allowed
// from the order's current status.
type InvalidTransitionError struct {
	From   models.OrderStatus
	Action models.OrderAction
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot %s an order in status %s", e.Action, e.From)
}
