package et

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Status is the concrete error type returned by every fallible operation in
// this package. It carries an ErrorCode, a human-readable message, and the
// name of the boundary call that failed. A nil error means success; a
// non-nil error means any other return values are unspecified.
type Status struct {
	code     ErrorCode
	message  string
	location string
}

// Code returns the error code. Safe on a nil status (returns ErrorCodeOK).
func (s *Status) Code() ErrorCode {
	if s == nil {
		return ErrorCodeOK
	}
	return s.code
}

// Message returns the human-readable failure description.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.message
}

// Location returns the name of the failing boundary call, when available.
func (s *Status) Location() string {
	if s == nil {
		return ""
	}
	return s.location
}

// Error implements the error interface.
func (s *Status) Error() string {
	if s == nil || s.code == ErrorCodeOK {
		return "ok"
	}
	if s.location != "" {
		return fmt.Sprintf("%s: %s (%s)", s.code, s.message, s.location)
	}
	return fmt.Sprintf("%s: %s", s.code, s.message)
}

// Is matches two statuses by code, so callers can test
// errors.Is(err, &Status{code: ...}) or compare against helper sentinels.
func (s *Status) Is(target error) bool {
	var other *Status
	if !errors.As(target, &other) {
		return false
	}
	return s.Code() == other.Code()
}

// StatusWithCode returns a bare status usable as an errors.Is target.
func StatusWithCode(code ErrorCode) *Status {
	return &Status{code: code}
}

// StatusCode extracts the ErrorCode from an error returned by this package.
// Returns ErrorCodeOK for nil and ErrorCodeInternal for foreign errors.
func StatusCode(err error) ErrorCode {
	if err == nil {
		return ErrorCodeOK
	}
	var s *Status
	if errors.As(err, &s) {
		return s.Code()
	}
	return ErrorCodeInternal
}

// newStatus builds a status attributed to the exported call that invoked it.
func newStatus(code ErrorCode, message string) *Status {
	return &Status{
		code:     code,
		message:  message,
		location: callerName(2),
	}
}

func newStatusf(code ErrorCode, format string, args ...any) *Status {
	return &Status{
		code:     code,
		message:  fmt.Sprintf(format, args...),
		location: callerName(2),
	}
}

// statusFromNative wraps a native runtime error code, embedding the numeric
// code for diagnosis. The native code is mapped to the closest taxonomy kind;
// the passed code is the fallback when the native code has no specific
// mapping.
func statusFromNative(code ErrorCode, op string, native nativeError) *Status {
	if mapped := native.errorCode(); mapped != ErrorCodeOK && mapped != ErrorCodeInternal {
		code = mapped
	}
	return &Status{
		code:     code,
		message:  fmt.Sprintf("%s: native error 0x%02x", op, int32(native)),
		location: callerName(2),
	}
}

// callerName returns the short function name skip frames up the stack,
// for example "et.LoadModule".
func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
