package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

// ClassFullMessage is shown to customers when a class has no seats left.
const ClassFullMessage = "This class is now full."

const genericFailureMessage = "Something went wrong processing your request. Please try again."

// ValidationError - missing or malformed request fields
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError - referenced class, booking or student does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// CapacityExceededError - class has no free seats left
type CapacityExceededError struct {
	ClassID     int64
	MaxCapacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("class %d is full (capacity %d)", e.ClassID, e.MaxCapacity)
}

// ConfigurationError - credentials or settings required for an operation are absent
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// ProcessorError - the payment processor rejected or failed a call.
// It never implies the hold is in a safe state.
type ProcessorError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment processor %s failed (%s): %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("payment processor %s failed: %s", e.Op, e.Message)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// PersistenceError - a database write failed after the processor call succeeded,
// so processor state and the local record have diverged.
type PersistenceError struct {
	Op         string
	BookingID  int64
	PaymentRef string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s for booking %d (payment %s): %v", e.Op, e.BookingID, e.PaymentRef, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InvalidTransitionError - the booking is not in a state that accepts the operation
type InvalidTransitionError struct {
	BookingID int64
	Err       error
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %d: %v", e.BookingID, e.Err)
}

func (e *InvalidTransitionError) Unwrap() error { return e.Err }

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

func Configuration(message string) error {
	return &ConfigurationError{Message: message}
}

// HTTPStatus maps an error from the service layer to a response status code
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		capacityErr   *CapacityExceededError
		transitionErr *InvalidTransitionError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &capacityErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &transitionErr):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to the caller.
// Processor, persistence and configuration details stay in server logs.
func PublicMessage(err error) string {
	var capacityErr *CapacityExceededError
	if errors.As(err, &capacityErr) {
		return ClassFullMessage
	}

	switch HTTPStatus(err) {
	case http.StatusInternalServerError:
		return genericFailureMessage
	default:
		return err.Error()
	}
}

// IsDrift reports whether err signals divergence between processor and local state
func IsDrift(err error) bool {
	var persistenceErr *PersistenceError
	return errors.As(err, &persistenceErr)
}
