package bridge

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		op        Operation
		connected bool
		want      Code
	}{
		{
			name:      "binary missing",
			err:       errors.New(`exec: "workbench-companion": executable file not found in $PATH`),
			op:        OpList,
			connected: false,
			want:      CodeCompanionNotFound,
		},
		{
			name:      "feature disabled",
			err:       errors.New("companion bridge is not enabled"),
			op:        OpCall,
			connected: false,
			want:      CodeBridgeDisabled,
		},
		{
			name:      "timeout while disconnected is a connect timeout",
			err:       errors.New("request timeout after 10s"),
			op:        OpList,
			connected: false,
			want:      CodeConnectTimeout,
		},
		{
			name:      "same timeout while connected scopes to list",
			err:       errors.New("request timeout after 10s"),
			op:        OpList,
			connected: true,
			want:      CodeListTimeout,
		},
		{
			name:      "same timeout while connected scopes to call",
			err:       errors.New("request timeout after 10s"),
			op:        OpCall,
			connected: true,
			want:      CodeCallTimeout,
		},
		{
			name:      "context deadline during call",
			err:       errors.New("context deadline exceeded"),
			op:        OpCall,
			connected: true,
			want:      CodeCallTimeout,
		},
		{
			name:      "approval gate",
			err:       errors.New("tool requires user approval before execution"),
			op:        OpCall,
			connected: true,
			want:      CodeApprovalRequired,
		},
		{
			name:      "session not ready sentinel",
			err:       fmt.Errorf("wrapped: %w", errNotConnected),
			op:        OpCall,
			connected: false,
			want:      CodeSessionNotReady,
		},
		{
			name:      "deferred sentinel",
			err:       fmt.Errorf("tool %q: %w", "x", errDeferredResult),
			op:        OpCall,
			connected: true,
			want:      CodeDeferredUnsupported,
		},
		{
			name:      "unexpected shape sentinel",
			err:       fmt.Errorf("tool %q: %w", "x", errUnexpectedResult),
			op:        OpCall,
			connected: true,
			want:      CodeUnexpectedShape,
		},
		{
			name:      "session closed text",
			err:       errors.New("session closed by peer"),
			op:        OpList,
			connected: true,
			want:      CodeSessionNotReady,
		},
		{
			name:      "structured error passes through",
			err:       NewError(CodeBridgeDisabled, "off"),
			op:        OpList,
			connected: true,
			want:      CodeBridgeDisabled,
		},
		{
			name:      "anything else is unavailable",
			err:       errors.New("broken pipe"),
			op:        OpCall,
			connected: true,
			want:      CodeUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err, tc.op, tc.connected)
			if got != tc.want {
				t.Fatalf("Classify(%q, %s, connected=%v) = %q, want %q",
					tc.err, tc.op, tc.connected, got, tc.want)
			}
		})
	}
}

func TestClassifyNilError(t *testing.T) {
	if got := Classify(nil, OpList, true); got != "" {
		t.Fatalf("expected empty code for nil error, got %q", got)
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(CodeCallTimeout, "call to %q timed out", "fmt_check")
	want := `call-timeout: call to "fmt_check" timed out`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
