package griddy

import (
	"errors"
	"fmt"
)

// ErrCode categorizes a griddy error per the controller's recovery policy.
type ErrCode string

const (
	ErrCodeTransientLink    ErrCode = "transient link error"
	ErrCodeDecode           ErrCode = "decode error"
	ErrCodeSolver           ErrCode = "solver error"
	ErrCodeEscalation       ErrCode = "escalation error"
	ErrCodeDeadlineExceeded ErrCode = "deadline exceeded"
	ErrCodeConfig           ErrCode = "config error"
)

// Error is the structured error type returned throughout griddy. It carries
// enough context to log and classify a failure without string matching.
type Error struct {
	Op    string // operation that failed, e.g. "wire.DecodeTelemetry"
	Code  ErrCode
	Cycle uint64 // cycle id, 0 if not applicable
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		if e.Cycle != 0 {
			return fmt.Sprintf("griddy: %s: %s (cycle=%d)", e.Op, msg, e.Cycle)
		}
		return fmt.Sprintf("griddy: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("griddy: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// NewError constructs a structured error with no cycle context.
func NewError(op string, code ErrCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewCycleError constructs a structured error scoped to a cycle id.
func NewCycleError(op string, cycle uint64, code ErrCode, msg string) *Error {
	return &Error{Op: op, Code: code, Cycle: cycle, Msg: msg}
}

// WrapError wraps an existing error with griddy context under the given
// code; the inner error stays reachable through Unwrap.
func WrapError(op string, code ErrCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is, or wraps, a *Error with the given code.
func IsCode(err error, code ErrCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
