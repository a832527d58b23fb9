// Package errors provides the error taxonomy shared by every plantreco package.
//
// It is a thin layer over github.com/cockroachdb/errors: the wrapping helpers
// (Wrap, Wrapf, Is, As, ...) are re-exported so callers only import one errors
// package, and a handful of typed errors describe the failure modes of the
// estimators and of the data pipeline:
//
//   - ModelError: an operation failed, wrapping an underlying cause
//   - DimensionError: a matrix or row had the wrong shape
//   - NotFittedError: an estimator was used before Fit
//   - ValueError: an argument had an invalid value
//   - ValidationError: a named parameter failed validation
//
// Printing an error with "%+v" includes the stack trace captured by cockroachdb/errors.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Typed errors unwrap to one of these so errors.Is works on categories.
var (
	ErrEmptyData         = errors.New("empty data")
	ErrNotFitted         = errors.New("not fitted")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotImplemented    = errors.New("not implemented")
)

// New, Newf, Wrap, Wrapf, Is, As and Unwrap are the cockroachdb/errors helpers.
var (
	New    = errors.New
	Newf   = errors.Newf
	Wrap   = errors.Wrap
	Wrapf  = errors.Wrapf
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// ModelError reports a failed operation together with its cause.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

// NewModelError creates a ModelError for operation op.
func NewModelError(op, kind string, err error) *ModelError {
	return &ModelError{Op: op, Kind: kind, Err: err}
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("plantreco: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("plantreco: %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ModelError) Unwrap() error { return e.Err }

// DimensionError reports an unexpected matrix or row shape.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

// NewDimensionError creates a DimensionError. Axis 0 is rows, 1 is columns.
func NewDimensionError(op string, expected, got, axis int) *DimensionError {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch on axis %d: expected %d, got %d",
		e.Op, e.Axis, e.Expected, e.Got)
}

// Unwrap lets errors.Is match ErrDimensionMismatch.
func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NotFittedError reports use of an estimator before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) *NotFittedError {
	return &NotFittedError{ModelName: modelName, Method: method}
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s called before Fit", e.ModelName, e.Method)
}

// Unwrap lets errors.Is match ErrNotFitted.
func (e *NotFittedError) Unwrap() error { return ErrNotFitted }

// ValueError reports an argument with an invalid value.
type ValueError struct {
	Op      string
	Message string
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) *ValueError {
	return &ValueError{Op: op, Message: message}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValueError) Unwrap() error { return ErrInvalidInput }

// ValidationError reports a named parameter that failed validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

// NewValidationError creates a ValidationError.
func NewValidationError(paramName, reason string, value interface{}) *ValidationError {
	return &ValidationError{ParamName: paramName, Reason: reason, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s (got %v)", e.ParamName, e.Reason, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Recover turns a panic in the calling function into an error stored in *errp.
// Use it as the first deferred call of exported methods:
//
//	func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
//		defer errors.Recover(&err, "StandardScaler.Fit")
//		...
//	}
func Recover(errp *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	default:
		cause = errors.Newf("%v", v)
	}
	*errp = errors.WithStack(NewModelError(op, "panic recovered", cause))
}
