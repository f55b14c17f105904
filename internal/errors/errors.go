// Package errors classifies harvester failures so the CLI can tell bad input,
// remote failures and graph inconsistencies apart.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
type ErrorClass int

const (
	// ErrorInvalid is bad caller input, raised before any network call.
	ErrorInvalid ErrorClass = iota
	// ErrorRemote is a transport or query failure reported by the endpoint.
	ErrorRemote
	// ErrorConsistency is a graph that cannot be cataloged as-is.
	ErrorConsistency
	// ErrorInternal is a broken traversal invariant (programmer error).
	ErrorInternal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorRemote:
		return "remote"
	case ErrorConsistency:
		return "consistency"
	case ErrorInternal:
		return "internal"
	default:
		return "unknown"
	}
}

var (
	// Input validation
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrInvalidTime       = errors.New("invalid time value")
	ErrInvalidOperator   = errors.New("unsupported comparison operator")
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrNoSelection       = errors.New("query has no selection clause")
	ErrInvalidConfig     = errors.New("invalid configuration")

	// Remote
	ErrQueryFailed = errors.New("query failed")

	// Graph consistency
	ErrUnknownType = errors.New("unknown resource type")
	ErrMissingName = errors.New("missing naming attribute")

	// Internal consistency
	ErrNotInStore    = errors.New("identifier not in metadata store")
	ErrDepthExceeded = errors.New("maximum flatten depth exceeded")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Classify returns the class of err. Unclassified errors that wrap one of the
// package sentinels inherit the sentinel's class; anything else is remote.
func Classify(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	switch {
	case errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrInvalidLimit),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrInvalidOperator),
		errors.Is(err, ErrInvalidSchema),
		errors.Is(err, ErrNoSelection):
		return ErrorInvalid
	case errors.Is(err, ErrUnknownType), errors.Is(err, ErrMissingName):
		return ErrorConsistency
	case errors.Is(err, ErrNotInStore), errors.Is(err, ErrDepthExceeded):
		return ErrorInternal
	}
	return ErrorRemote
}

// IsInvalid reports whether err was caused by invalid input.
func IsInvalid(err error) bool {
	return err != nil && Classify(err) == ErrorInvalid
}

// IsRemote reports whether err came from the query endpoint.
func IsRemote(err error) bool {
	return err != nil && Classify(err) == ErrorRemote
}

// IsFatal reports whether err must abort the whole run rather than the
// current step.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	c := Classify(err)
	return c == ErrorConsistency || c == ErrorInternal
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapClass(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapInvalid wraps an error as invalid input with context
func WrapInvalid(err error, component, method, action string) error {
	return wrapClass(ErrorInvalid, err, component, method, action)
}

// WrapRemote wraps an error as a remote failure with context
func WrapRemote(err error, component, method, action string) error {
	return wrapClass(ErrorRemote, err, component, method, action)
}

// WrapConsistency wraps an error as a graph-consistency failure with context
func WrapConsistency(err error, component, method, action string) error {
	return wrapClass(ErrorConsistency, err, component, method, action)
}

// WrapInternal wraps an error as an internal-consistency failure with context
func WrapInternal(err error, component, method, action string) error {
	return wrapClass(ErrorInternal, err, component, method, action)
}
