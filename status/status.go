// Package status implements the small tagged error taxonomy shared by every
// layer of the streamio stack: a closed set of failure kinds, a latched
// message, and an optional cause chain so a composed writer can annotate an
// inner failure without losing its code.
package status

import "fmt"

// Code is the closed set of failure kinds a streamio operation can report.
type Code int

const (
	// OK is never attached to a returned *Status; it exists so the zero
	// value of Code is distinguishable from a real failure.
	OK Code = iota
	// InvalidArgument reports malformed input or a violated precondition
	// surfaced to the caller (e.g. a seek target past a writer's limit).
	InvalidArgument
	// FailedPrecondition reports an internal precondition violation; a
	// programmer error rather than bad input.
	FailedPrecondition
	// DataLoss reports an unparsable record or a checksum mismatch on read.
	DataLoss
	// ResourceExhausted reports a position limit, an overflow, or a size
	// cap being exceeded.
	ResourceExhausted
	// Unimplemented reports a capability the writer does not support.
	Unimplemented
	// Unknown reports an I/O failure that is not classified further.
	// sinks.FDWriter reports every failed system call with this code,
	// whatever its errno.
	Unknown
	// NotFound reports a missing file or object. No sink in this module
	// maps an errno to it.
	NotFound
	// PermissionDenied reports a refused access. No sink in this module
	// maps an errno to it.
	PermissionDenied
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case InvalidArgument:
		return "invalid_argument"
	case FailedPrecondition:
		return "failed_precondition"
	case DataLoss:
		return "data_loss"
	case ResourceExhausted:
		return "resource_exhausted"
	case Unimplemented:
		return "unimplemented"
	case Unknown:
		return "unknown"
	case NotFound:
		return "not_found"
	case PermissionDenied:
		return "permission_denied"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Status is a latched failure: a code, a human-readable message, and an
// optional cause. It implements error so it can be returned, wrapped with
// fmt.Errorf("%w", ...), and matched with errors.As.
type Status struct {
	code  Code
	msg   string
	cause error
}

// New returns a *Status with no cause.
func New(code Code, msg string) *Status {
	return &Status{code: code, msg: msg}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code Code, format string, args ...interface{}) *Status {
	return &Status{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause as the Unwrap target of a new Status carrying code and
// msg. If cause is itself a *Status, code should normally be cause.Code() so
// the outer layer preserves it; Annotatef does exactly that.
func Wrap(code Code, msg string, cause error) *Status {
	return &Status{code: code, msg: msg, cause: cause}
}

// Annotatef wraps cause with additional context while preserving its Code.
// This is how a composed writer reports an inner failure "at position N" or
// "writing <name>" without inventing a new failure kind. A nil cause yields a
// nil *Status so annotation can be called unconditionally at a call site.
func Annotatef(cause *Status, format string, args ...interface{}) *Status {
	if cause == nil {
		return nil
	}
	ctx := fmt.Sprintf(format, args...)
	return &Status{
		code:  cause.code,
		msg:   ctx + ": " + cause.msg,
		cause: cause,
	}
}

// Code reports the failure kind.
func (s *Status) Code() Code {
	if s == nil {
		return OK
	}
	return s.code
}

// Error implements error.
func (s *Status) Error() string {
	if s == nil {
		return "ok"
	}
	return s.code.String() + ": " + s.msg
}

// Unwrap exposes the cause chain to errors.Is/errors.As.
func (s *Status) Unwrap() error {
	if s == nil {
		return nil
	}
	return s.cause
}

// Is reports whether err is a *Status carrying code, walking the cause chain.
func Is(err error, code Code) bool {
	for err != nil {
		if s, ok := err.(*Status); ok {
			if s.code == code {
				return true
			}
			err = s.cause
			continue
		}
		break
	}
	return false
}

// FromError extracts a *Status from err, if any is present in its chain.
func FromError(err error) (*Status, bool) {
	for err != nil {
		if s, ok := err.(*Status); ok {
			return s, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}
