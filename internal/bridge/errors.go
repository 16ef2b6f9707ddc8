package bridge

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies one stable bridge failure category. Codes are part of the
// host-facing surface: clients branch on them, so values never change.
type Code string

const (
	// CodeCompanionNotFound means the companion binary is not discoverable.
	CodeCompanionNotFound Code = "companion-binary-not-found"
	// CodeBridgeDisabled means the bridge feature is administratively off.
	CodeBridgeDisabled Code = "bridge-disabled"
	// CodeConnectTimeout means the subprocess handshake timed out.
	CodeConnectTimeout Code = "connect-timeout"
	// CodeListTimeout means a catalog listing timed out.
	CodeListTimeout Code = "list-timeout"
	// CodeCallTimeout means a tool invocation timed out.
	CodeCallTimeout Code = "call-timeout"
	// CodeApprovalRequired means the companion refused pending user approval.
	CodeApprovalRequired Code = "approval-required"
	// CodeSessionNotReady means no companion session is established.
	CodeSessionNotReady Code = "session-not-ready"
	// CodeUnexpectedShape means a reply was neither an immediate result nor a
	// recognized deferred marker.
	CodeUnexpectedShape Code = "unexpected-result-shape"
	// CodeDeferredUnsupported means the companion returned a deferred/task
	// result, which the bridge does not support.
	CodeDeferredUnsupported Code = "deferred-result-unsupported"
	// CodeUnavailable covers every other companion failure.
	CodeUnavailable Code = "companion-unavailable"
)

// Operation scopes timeout classification to the attempted request.
type Operation string

const (
	// OpList is a catalog listing operation.
	OpList Operation = "list"
	// OpCall is a tool invocation operation.
	OpCall Operation = "call"
)

// Error is the structured failure returned by coordinator operations.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a structured bridge error.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinel errors raised by the client layer. Classify maps them before any
// substring matching so the mapping stays exact.
var (
	errNotConnected       = errors.New("companion session is not ready")
	errDeferredResult     = errors.New("companion returned a deferred task result")
	errUnexpectedResult   = errors.New("companion returned an unexpected result shape")
	errCompanionNotOnPath = errors.New("companion binary not found")
	errApprovalRequired   = errors.New("companion requires approval")
)

// Classify maps a lower-level failure onto the stable bridge code taxonomy.
// op names the attempted request and connected is the session state at the
// time of failure; together they disambiguate generic timeout messages: a
// timeout while disconnected is a connect timeout, otherwise it is scoped to
// the attempted operation.
func Classify(err error, op Operation, connected bool) Code {
	if err == nil {
		return ""
	}

	var bridgeErr *Error
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Code
	}

	switch {
	case errors.Is(err, errNotConnected):
		return CodeSessionNotReady
	case errors.Is(err, errDeferredResult):
		return CodeDeferredUnsupported
	case errors.Is(err, errUnexpectedResult):
		return CodeUnexpectedShape
	case errors.Is(err, errCompanionNotOnPath):
		return CodeCompanionNotFound
	case errors.Is(err, errApprovalRequired):
		return CodeApprovalRequired
	}

	message := strings.ToLower(err.Error())

	switch {
	case strings.Contains(message, "executable file not found"),
		strings.Contains(message, "no such file or directory"),
		strings.Contains(message, "binary not found"):
		return CodeCompanionNotFound
	case strings.Contains(message, "not enabled"),
		strings.Contains(message, "disabled"):
		return CodeBridgeDisabled
	case strings.Contains(message, "approval"):
		return CodeApprovalRequired
	case strings.Contains(message, "deferred"),
		strings.Contains(message, "task result"):
		return CodeDeferredUnsupported
	case strings.Contains(message, "unexpected result"),
		strings.Contains(message, "malformed result"):
		return CodeUnexpectedShape
	case strings.Contains(message, "not connected"),
		strings.Contains(message, "not ready"),
		strings.Contains(message, "session closed"),
		strings.Contains(message, "not initialized"):
		return CodeSessionNotReady
	case strings.Contains(message, "timeout"),
		strings.Contains(message, "timed out"),
		strings.Contains(message, "deadline exceeded"):
		if !connected {
			return CodeConnectTimeout
		}
		if op == OpCall {
			return CodeCallTimeout
		}
		return CodeListTimeout
	}

	return CodeUnavailable
}
