package seq

import (
	"errors"
	"fmt"

	"github.com/behrlich/go-seq/internal/errcode"
)

// Error is a structured runtime error carrying enough context to locate
// the failing program, state set, and channel without string parsing.
type Error struct {
	Op       string    // operation that failed, e.g. "pvGet", "assign", "start"
	Program  string    // program name (empty if not applicable)
	Instance int       // program instance number (-1 if not applicable)
	StateSet string    // state-set name (empty if not applicable)
	Channel  string    // channel/variable name (empty if not applicable)
	Code     ErrorCode // high-level error category
	Msg      string    // human-readable message
	Inner    error     // wrapped error, if any
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Program != "" {
		parts = append(parts, fmt.Sprintf("program=%s[%d]", e.Program, e.Instance))
	}
	if e.StateSet != "" {
		parts = append(parts, fmt.Sprintf("ss=%s", e.StateSet))
	}
	if e.Channel != "" {
		parts = append(parts, fmt.Sprintf("chan=%s", e.Channel))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("seq: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("seq: %s", msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by error code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents the internal error taxonomy from the error
// handling design: Configuration, Assignment, Disconnected, Timeout,
// Transport, Resource. It is an alias of internal/errcode.Code so that
// packages below this one (internal/channel) can construct errors
// carrying these same codes without importing this package.
type ErrorCode = errcode.Code

const (
	ErrCodeConfiguration = errcode.Configuration
	ErrCodeUnassigned    = errcode.Unassigned
	ErrCodeDisconnected  = errcode.Disconnected
	ErrCodeTimeout       = errcode.Timeout
	ErrCodeTransport     = errcode.Transport
	ErrCodeResource      = errcode.Resource
)

// NewError builds a structured error with just an operation and code.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewChannelError builds a structured error scoped to one channel.
func NewChannelError(op, channel string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Channel: channel, Code: code, Msg: msg}
}

// NewProgramError builds a structured error scoped to one program instance.
func NewProgramError(op, program string, instance int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Program: program, Instance: instance, Code: code, Msg: msg}
}

// WrapError wraps an existing error with seq context, preserving the
// inner error's code/scoping when it is already a *Error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if se, ok := inner.(*Error); ok {
		return &Error{
			Op:       op,
			Program:  se.Program,
			Instance: se.Instance,
			StateSet: se.StateSet,
			Channel:  se.Channel,
			Code:     se.Code,
			Msg:      se.Msg,
			Inner:    se.Inner,
		}
	}
	return &Error{Op: op, Code: ErrCodeTransport, Msg: inner.Error(), Inner: inner}
}

// coder is implemented by any error — not just *Error — that can
// classify itself by code; internal/channel's pvGet/pvPut/disconnected/
// timeout errors implement it directly, so action code that gets a
// *channel.Channel straight from ss.Channel(idx) can still classify
// what it returns without this package wrapping it first.
type coder interface {
	Code() ErrorCode
}

// IsCode reports whether err (or any error in its Unwrap chain)
// carries the given code, whether it is a *Error or any other error
// implementing Code() ErrorCode.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code() == code
	}
	return false
}
