package mcphost_test

import (
	"encoding/json"
	"strings"
	"testing"

	mcphost "github.com/MegaGrindStone/go-mcphost"
)

func TestRequestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    mcphost.RequestID
		wantErr bool
	}{
		{"number", `7`, 7, false},
		{"numeric string", `"13"`, 13, false},
		{"null", `null`, 0, false},
		{"non-numeric string", `"abc"`, 0, true},
		{"bool", `true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id mcphost.RequestID
			err := json.Unmarshal([]byte(tt.in), &id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Unmarshal(%s) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			if id != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, id, tt.want)
			}
		})
	}
}

func TestNotificationOmitsID(t *testing.T) {
	msg := mcphost.JSONRPCMessage{
		JSONRPC: mcphost.JSONRPCVersion,
		Method:  "notifications/initialized",
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), `"id"`) {
		t.Errorf("notification encoding contains an id: %s", data)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	msg := mcphost.JSONRPCMessage{
		JSONRPC: mcphost.JSONRPCVersion,
		ID:      3,
		Method:  mcphost.MethodToolsCall,
		Params:  json.RawMessage(`{"name":"echo","arguments":{"message":"hi"}}`),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got mcphost.JSONRPCMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID != 3 {
		t.Errorf("ID = %d, want 3", got.ID)
	}
	if got.Method != mcphost.MethodToolsCall {
		t.Errorf("Method = %q, want %q", got.Method, mcphost.MethodToolsCall)
	}
}

func TestJSONRPCErrorMessage(t *testing.T) {
	e := mcphost.JSONRPCError{Code: -32601, Message: "method not found"}
	got := e.Error()
	if !strings.Contains(got, "-32601") || !strings.Contains(got, "method not found") {
		t.Errorf("Error() = %q, want code and message included", got)
	}
}
