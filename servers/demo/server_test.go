package demo_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	mcphost "github.com/MegaGrindStone/go-mcphost"
	"github.com/MegaGrindStone/go-mcphost/servers/demo"
)

// serve feeds a scripted request stream to the server and returns the
// responses indexed by request id.
func serve(t *testing.T, requests ...mcphost.JSONRPCMessage) map[mcphost.RequestID]mcphost.JSONRPCMessage {
	t.Helper()

	var in bytes.Buffer
	for _, req := range requests {
		data, err := json.Marshal(req)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		in.Write(data)
		in.WriteByte('\n')
	}

	var out bytes.Buffer
	if err := demo.NewServer().Serve(&in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	responses := map[mcphost.RequestID]mcphost.JSONRPCMessage{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var msg mcphost.JSONRPCMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			t.Fatalf("unmarshal response %q: %v", scanner.Text(), err)
		}
		responses[msg.ID] = msg
	}
	return responses
}

func request(id mcphost.RequestID, method string, params any) mcphost.JSONRPCMessage {
	msg := mcphost.JSONRPCMessage{JSONRPC: mcphost.JSONRPCVersion, ID: id, Method: method}
	if params != nil {
		data, _ := json.Marshal(params)
		msg.Params = data
	}
	return msg
}

func callRequest(id mcphost.RequestID, tool string, args map[string]any) mcphost.JSONRPCMessage {
	return request(id, mcphost.MethodToolsCall, mcphost.CallToolParams{Name: tool, Arguments: args})
}

func toolResult(t *testing.T, msg mcphost.JSONRPCMessage) mcphost.CallToolResult {
	t.Helper()
	if msg.Error != nil {
		t.Fatalf("request %d failed: %v", msg.ID, msg.Error)
	}
	var result mcphost.CallToolResult
	if err := json.Unmarshal(msg.Result, &result); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
	return result
}

func TestServeInitialize(t *testing.T) {
	responses := serve(t,
		request(1, "initialize", map[string]any{"protocolVersion": "2025-03-26"}),
	)

	res, ok := responses[1]
	if !ok {
		t.Fatal("initialize was not answered")
	}
	var result struct {
		ProtocolVersion string                     `json:"protocolVersion"`
		Capabilities    mcphost.ServerCapabilities `json:"capabilities"`
		ServerInfo      mcphost.Info               `json:"serverInfo"`
	}
	if err := json.Unmarshal(res.Result, &result); err != nil {
		t.Fatalf("unmarshal initialize result: %v", err)
	}
	if result.ProtocolVersion != "2025-03-26" {
		t.Errorf("protocolVersion = %q, want the client's version echoed", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "demo" {
		t.Errorf("serverInfo.name = %q, want demo", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil || result.Capabilities.Resources == nil || result.Capabilities.Prompts == nil {
		t.Errorf("capabilities = %+v, want tools, resources, and prompts", result.Capabilities)
	}
}

func TestServeToolsList(t *testing.T) {
	responses := serve(t, request(1, mcphost.MethodToolsList, nil))

	var result mcphost.ListToolsResult
	if err := json.Unmarshal(responses[1].Result, &result); err != nil {
		t.Fatalf("unmarshal tools/list result: %v", err)
	}

	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
		if len(tool.InputSchema) == 0 {
			t.Errorf("tool %q has no input schema", tool.Name)
		}
	}
	for _, want := range []string{"echo", "add", "diff_text", "match_names", "fail"} {
		if !names[want] {
			t.Errorf("catalog is missing tool %q", want)
		}
	}
}

func TestServeToolCalls(t *testing.T) {
	responses := serve(t,
		callRequest(1, "echo", map[string]any{"message": "hi"}),
		callRequest(2, "add", map[string]any{"a": 1.5, "b": 2.5}),
		callRequest(3, "fail", map[string]any{"message": "deliberate"}),
		callRequest(4, "echo", map[string]any{"message": 7}),
		callRequest(5, "no_such_tool", nil),
	)

	echo := toolResult(t, responses[1])
	if len(echo.Content) != 1 || echo.Content[0].Text != "Echo: hi" {
		t.Errorf("echo result = %+v, want Echo: hi", echo.Content)
	}

	add := toolResult(t, responses[2])
	if add.Content[0].Text != "Result: 4" {
		t.Errorf("add result = %q, want Result: 4", add.Content[0].Text)
	}

	fail := toolResult(t, responses[3])
	if !fail.IsError {
		t.Error("fail result is not flagged as an error")
	}
	if fail.Content[0].Text != "deliberate" {
		t.Errorf("fail message = %q, want deliberate", fail.Content[0].Text)
	}

	if responses[4].Error == nil {
		t.Error("echo with a non-string message succeeded, want invalid-params error")
	}
	if responses[5].Error == nil || responses[5].Error.Code != -32602 {
		t.Errorf("unknown tool reply = %+v, want invalid-params error", responses[5])
	}
}

func TestServeDiffText(t *testing.T) {
	responses := serve(t, callRequest(1, "diff_text", map[string]any{
		"original": "hello world\n",
		"modified": "hello there\n",
	}))

	result := toolResult(t, responses[1])
	patch := result.Content[0].Text
	if patch == "" {
		t.Fatal("diff of different texts is empty")
	}
	if !strings.Contains(patch, "@@") {
		t.Errorf("diff output %q does not look like patch text", patch)
	}

	responses = serve(t, callRequest(1, "diff_text", map[string]any{
		"original": "same\n",
		"modified": "same\n",
	}))
	if got := toolResult(t, responses[1]).Content[0].Text; got != "" {
		t.Errorf("diff of identical texts = %q, want empty", got)
	}
}

func TestServeMatchNames(t *testing.T) {
	responses := serve(t, callRequest(1, "match_names", map[string]any{
		"pattern": "*.go",
		"names":   []string{"main.go", "readme.md", "host.go", "spec.txt"},
	}))

	result := toolResult(t, responses[1])
	if got := result.Content[0].Text; got != "host.go\nmain.go" {
		t.Errorf("match_names result = %q, want sorted matches", got)
	}

	responses = serve(t, callRequest(1, "match_names", map[string]any{
		"pattern": "[invalid",
		"names":   []string{"a"},
	}))
	if responses[1].Error == nil {
		t.Error("invalid glob pattern succeeded, want error")
	}
}

func TestServeResourcesAndPrompts(t *testing.T) {
	responses := serve(t,
		request(1, mcphost.MethodResourcesList, nil),
		request(2, mcphost.MethodResourcesRead, mcphost.ReadResourceParams{URI: "demo://motd"}),
		request(3, mcphost.MethodResourcesRead, mcphost.ReadResourceParams{URI: "demo://nope"}),
		request(4, mcphost.MethodPromptsList, nil),
		request(5, mcphost.MethodPromptsGet, mcphost.GetPromptParams{
			Name:      "greet",
			Arguments: map[string]string{"name": "Go"},
		}),
		request(6, mcphost.MethodPromptsGet, mcphost.GetPromptParams{Name: "greet"}),
	)

	var resources mcphost.ListResourcesResult
	if err := json.Unmarshal(responses[1].Result, &resources); err != nil {
		t.Fatalf("unmarshal resources/list: %v", err)
	}
	if len(resources.Resources) != 1 || resources.Resources[0].URI != "demo://motd" {
		t.Errorf("resources = %+v, want demo://motd", resources.Resources)
	}

	var motd mcphost.ReadResourceResult
	if err := json.Unmarshal(responses[2].Result, &motd); err != nil {
		t.Fatalf("unmarshal resources/read: %v", err)
	}
	if len(motd.Contents) != 1 || motd.Contents[0].Text != "Hello from the demo server" {
		t.Errorf("motd = %+v, want the greeting text", motd.Contents)
	}

	if responses[3].Error == nil {
		t.Error("read of unknown resource succeeded, want error")
	}

	var prompts mcphost.ListPromptsResult
	if err := json.Unmarshal(responses[4].Result, &prompts); err != nil {
		t.Fatalf("unmarshal prompts/list: %v", err)
	}
	if len(prompts.Prompts) != 1 || prompts.Prompts[0].Name != "greet" {
		t.Errorf("prompts = %+v, want greet", prompts.Prompts)
	}

	var greet mcphost.GetPromptResult
	if err := json.Unmarshal(responses[5].Result, &greet); err != nil {
		t.Fatalf("unmarshal prompts/get: %v", err)
	}
	if len(greet.Messages) != 1 || !strings.Contains(greet.Messages[0].Content.Text, "Go") {
		t.Errorf("greet = %+v, want a greeting naming Go", greet.Messages)
	}

	if responses[6].Error == nil {
		t.Error("greet without the required name succeeded, want error")
	}
}

func TestServeSkipsNoise(t *testing.T) {
	var in bytes.Buffer
	in.WriteString("\n")         // blank line
	in.WriteString("not json\n") // malformed frame
	in.WriteString(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	data, _ := json.Marshal(request(1, "ping", nil))
	in.Write(data)
	in.WriteByte('\n')

	var out bytes.Buffer
	if err := demo.NewServer().Serve(&in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	lines := strings.Count(out.String(), "\n")
	if lines != 1 {
		t.Fatalf("Serve wrote %d responses, want only the ping reply", lines)
	}
	var res mcphost.JSONRPCMessage
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &res); err != nil {
		t.Fatalf("unmarshal ping reply: %v", err)
	}
	if res.ID != 1 || res.Error != nil {
		t.Errorf("ping reply = %+v, want empty result for id 1", res)
	}
}

func TestServeUnknownMethod(t *testing.T) {
	responses := serve(t, request(1, "tools/strange", nil))
	if responses[1].Error == nil || responses[1].Error.Code != -32601 {
		t.Errorf("reply = %+v, want method-not-found error", responses[1])
	}
}
