package pipeline

import (
	"errors"
	"fmt"

	"swift-gateway/internal/swift"
	"swift-gateway/internal/validate"
)

// PersistenceError wraps a storage failure. It is retried locally before
// escalating to the dead-letter queue.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// RoutingError wraps a queue send failure, naming the target queue.
type RoutingError struct {
	Queue string
	Err   error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing error for queue %s: %v", e.Queue, e.Err)
}

func (e *RoutingError) Unwrap() error {
	return e.Err
}

// SystemError marks an unclassified failure such as a recovered panic.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("system error: %v", e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// errorKind names the failure class for diagnostics and result reporting.
func errorKind(err error) string {
	switch {
	case swift.IsParsingError(err):
		return "ParsingError"
	case validate.IsValidationError(err):
		return "ValidationError"
	case isPersistenceError(err):
		return "PersistenceError"
	case isRoutingError(err):
		return "RoutingError"
	default:
		return "SystemError"
	}
}

func isPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func isRoutingError(err error) bool {
	var re *RoutingError
	return errors.As(err, &re)
}
