// Package errors provides structured error handling with typed error codes.
//
// Codes are grouped by range:
//   - General (1-99)
//   - Configuration (100-199): invalid risk, signal or engine settings
//   - Data (200-299): bar feeds, alert files, insufficient history
//   - Signal (300-399)
//   - Risk (400-499): sizing, position lookup, breaker, state snapshots
//   - Execution (500-599): order gateways and fill journal
//   - Backtest (600-699)
//   - Callback (800-899)
//
// Expected trading outcomes such as a blocked entry are not errors; the risk
// package reports them as rejection values. Errors here signal misuse or
// failure.
//
//	err := errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", id)
//	if errors.HasCode(err, errors.ErrCodePositionNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is a failure tagged with an ErrorCode. Cause is optional.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap tags cause with code. The cause stays reachable through errors.Is/As.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// Error renders "[code] message" followed by ": cause" when there is one.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%d] %s", e.Code, e.Message)
	if e.Cause == nil {
		return msg
	}

	return msg + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// As is errors.As, re-exported so callers importing this package under the
// name errors keep access to it.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the first coded error in err's chain, or
// ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var coded interface{ Code() ErrorCode }

	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Code
	case errors.As(err, &coded):
		return coded.Code()
	default:
		return ErrCodeUnknown
	}
}

func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientDataError reports that a calculation needed Required bars but
// only Actual were available.
type InsufficientDataError struct {
	Required int
	Actual   int
	// Symbol is empty when the bars carried none.
	Symbol  string
	Message string
}

func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{Required: required, Actual: actual, Symbol: symbol, Message: message}
}

func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return NewInsufficientDataError(required, actual, symbol, fmt.Sprintf(format, args...))
}

func (e *InsufficientDataError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("need %d bars, got %d", e.Required, e.Actual)
}

// Code makes InsufficientDataError visible to GetCode and HasCode.
func (e *InsufficientDataError) Code() ErrorCode {
	return ErrCodeInsufficientData
}

func IsInsufficientDataError(err error) bool {
	var target *InsufficientDataError

	return errors.As(err, &target)
}
