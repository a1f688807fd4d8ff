package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("dashboard: saved object not found")
	// ErrStaleNavigation marks async results whose navigation target is no longer current.
	// It never reaches the user.
	ErrStaleNavigation = errors.New("dashboard: stale navigation")
	// ErrInvalidRequest marks caller mistakes such as missing ids or failed validation.
	ErrInvalidRequest = errors.New("dashboard: invalid request")

	errMissingLoader = errors.New("dashboard: loader not configured")
	errMissingID     = fmt.Errorf("%w: id is required", ErrInvalidRequest)
)

// NotFoundError reports a saved object id that does not exist.
type NotFoundError struct {
	Type string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dashboard: could not locate that %s (id: %s)", e.Type, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError builds a NotFoundError for a dashboard id.
func NewNotFoundError(id string) error {
	return &NotFoundError{Type: SavedObjectType, ID: id}
}

// IsNotFound reports whether err is a not found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalid reports whether err was caused by an invalid request.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// ConversionError wraps a malformed JSON sub-field of a persisted document.
type ConversionError struct {
	Field string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("dashboard: convert %s: %v", e.Field, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// FailureReason classifies a load error for metrics labels.
func FailureReason(err error) string {
	var conv *ConversionError
	switch {
	case IsNotFound(err):
		return "not_found"
	case errors.As(err, &conv):
		return "conversion"
	case IsInvalid(err):
		return "invalid"
	default:
		return "error"
	}
}
