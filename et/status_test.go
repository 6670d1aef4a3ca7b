package et

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStatusAccessors(t *testing.T) {
	status := newStatus(ErrorCodeModelLoadFailed, "failed to load program")

	if status.Code() != ErrorCodeModelLoadFailed {
		t.Errorf("Code() = %v, want %v", status.Code(), ErrorCodeModelLoadFailed)
	}
	if status.Message() != "failed to load program" {
		t.Errorf("Message() = %q", status.Message())
	}
	if status.Location() == "" {
		t.Error("Location() is empty, want the calling function name")
	}
	if !strings.Contains(status.Location(), "TestStatusAccessors") {
		t.Errorf("Location() = %q, want it to name the caller", status.Location())
	}
}

func TestStatusError(t *testing.T) {
	status := newStatus(ErrorCodeInvalidArgument, "rank must be positive")
	msg := status.Error()

	if !strings.Contains(msg, "invalid argument") {
		t.Errorf("Error() = %q, want it to contain the code name", msg)
	}
	if !strings.Contains(msg, "rank must be positive") {
		t.Errorf("Error() = %q, want it to contain the message", msg)
	}
}

func TestStatusNil(t *testing.T) {
	var status *Status

	if status.Code() != ErrorCodeOK {
		t.Errorf("nil Code() = %v, want OK", status.Code())
	}
	if status.Message() != "" {
		t.Errorf("nil Message() = %q, want empty", status.Message())
	}
	if status.Location() != "" {
		t.Errorf("nil Location() = %q, want empty", status.Location())
	}
}

func TestStatusIs(t *testing.T) {
	err := fmt.Errorf("loading model: %w", newStatus(ErrorCodeModelLoadFailed, "bad blob"))

	if !errors.Is(err, StatusWithCode(ErrorCodeModelLoadFailed)) {
		t.Error("errors.Is() = false, want true for matching code")
	}
	if errors.Is(err, StatusWithCode(ErrorCodeInferenceFailed)) {
		t.Error("errors.Is() = true, want false for mismatched code")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil error", err: nil, want: ErrorCodeOK},
		{name: "direct status", err: newStatus(ErrorCodeInvalidState, "not loaded"), want: ErrorCodeInvalidState},
		{
			name: "wrapped status",
			err:  fmt.Errorf("outer: %w", newStatus(ErrorCodeOutOfMemory, "alloc failed")),
			want: ErrorCodeOutOfMemory,
		},
		{name: "foreign error", err: errors.New("plain"), want: ErrorCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusFromNativeEmbedsCode(t *testing.T) {
	status := statusFromNative(ErrorCodeInferenceFailed, "forward execution failed", nativeDelegateIncompatibility)

	if !strings.Contains(status.Message(), "0x30") {
		t.Errorf("Message() = %q, want the native code embedded", status.Message())
	}
	if status.Code() != ErrorCodeModelLoadFailed {
		t.Errorf("Code() = %v, want native mapping %v", status.Code(), ErrorCodeModelLoadFailed)
	}
}

func TestStatusFromNativeFallback(t *testing.T) {
	// Codes without a specific taxonomy mapping keep the operation's code.
	status := statusFromNative(ErrorCodeInferenceFailed, "forward execution failed", nativeInternal)
	if status.Code() != ErrorCodeInferenceFailed {
		t.Errorf("Code() = %v, want fallback %v", status.Code(), ErrorCodeInferenceFailed)
	}
}

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrorCodeOK, "ok"},
		{ErrorCodeInvalidArgument, "invalid argument"},
		{ErrorCodeOutOfMemory, "out of memory"},
		{ErrorCodeModelLoadFailed, "model load failed"},
		{ErrorCodeInferenceFailed, "inference failed"},
		{ErrorCodeInvalidState, "invalid state"},
		{ErrorCodeUnsupported, "unsupported"},
		{ErrorCodeIOError, "io error"},
		{ErrorCodeInternal, "internal error"},
		{ErrorCode(1234), "unknown error"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}
