package mcphost_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	mcphost "github.com/MegaGrindStone/go-mcphost"
)

func TestLaunchErrorUnwrap(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := error(&mcphost.LaunchError{Command: []string{"missing-server", "--stdio"}, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach the wrapped cause")
	}
	var le *mcphost.LaunchError
	if !errors.As(err, &le) {
		t.Fatal("errors.As failed to match *LaunchError")
	}
	if !strings.Contains(err.Error(), "missing-server --stdio") {
		t.Errorf("Error() = %q, want command included", err.Error())
	}
}

func TestProtocolErrorUnwrap(t *testing.T) {
	cause := errors.New("invalid character 'n'")
	err := error(&mcphost.ProtocolError{Line: "not-json", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach the wrapped cause")
	}
	if !strings.Contains(err.Error(), "not-json") {
		t.Errorf("Error() = %q, want offending line included", err.Error())
	}
}

func TestDiscoveryErrorUnwrap(t *testing.T) {
	rpcErr := &mcphost.JSONRPCError{Code: -32603, Message: "boom"}
	err := error(&mcphost.DiscoveryError{Method: mcphost.MethodToolsList, Err: rpcErr})

	var je *mcphost.JSONRPCError
	if !errors.As(err, &je) {
		t.Fatal("errors.As failed to reach the wrapped *JSONRPCError")
	}
	if je.Code != -32603 {
		t.Errorf("Code = %d, want -32603", je.Code)
	}
	if !strings.Contains(err.Error(), "tools/list") {
		t.Errorf("Error() = %q, want method included", err.Error())
	}
}

func TestUnknownToolErrorListsCatalog(t *testing.T) {
	err := &mcphost.UnknownToolError{Name: "missing", Available: []string{"add", "echo"}}
	got := err.Error()
	if !strings.Contains(got, `"missing"`) {
		t.Errorf("Error() = %q, want unknown name included", got)
	}
	if !strings.Contains(got, "add, echo") {
		t.Errorf("Error() = %q, want available tools listed", got)
	}

	empty := &mcphost.UnknownToolError{Name: "missing"}
	if !strings.Contains(empty.Error(), "no tools") {
		t.Errorf("Error() = %q, want empty-catalog wording", empty.Error())
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	tests := []struct {
		sentinel error
	}{
		{mcphost.ErrNotConnected},
		{mcphost.ErrConnectionClosed},
		{mcphost.ErrNotReady},
		{mcphost.ErrRunnerClosed},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("call tool: %w", tt.sentinel)
		if !errors.Is(wrapped, tt.sentinel) {
			t.Errorf("errors.Is(%v) failed after wrapping", tt.sentinel)
		}
	}
}
