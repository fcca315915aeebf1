// Package demo implements a small MCP server speaking newline-framed JSON-RPC
// over a reader/writer pair, normally a process's standard streams. It exists
// so the host has a self-contained peer for examples and end-to-end tests:
// a couple of arithmetic and text tools, one resource, and one prompt.
package demo

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sergi/go-diff/diffmatchpatch"

	mcphost "github.com/MegaGrindStone/go-mcphost"
)

// Server serves the demo tool catalog over one reader/writer pair. Create it
// with NewServer and drive it with Serve; Serve returns when the input stream
// ends, which is how the host signals shutdown (it closes the child's stdin).
type Server struct {
	logger *slog.Logger
}

// Option is a function that configures a Server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a demo server.
func NewServer(options ...Option) *Server {
	s := &Server{
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Serve reads newline-delimited JSON-RPC messages from r and writes responses
// to w until r is exhausted. Notifications are consumed without a response,
// per the protocol.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			continue
		}

		var msg mcphost.JSONRPCMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			s.logger.Error("failed to unmarshal message", "err", err)
			continue
		}

		// Notifications carry no id and get no response.
		if msg.ID == 0 {
			continue
		}

		res := s.handle(msg)
		resBs, err := json.Marshal(res)
		if err != nil {
			s.logger.Error("failed to marshal response", "err", err)
			continue
		}
		if _, err := w.Write(append(resBs, '\n')); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
}

func (s *Server) handle(msg mcphost.JSONRPCMessage) mcphost.JSONRPCMessage {
	switch msg.Method {
	case "initialize":
		return result(msg.ID, map[string]any{
			"protocolVersion": protocolVersion(msg.Params),
			"capabilities": mcphost.ServerCapabilities{
				Tools:     &mcphost.ToolsCapability{},
				Resources: &mcphost.ResourcesCapability{},
				Prompts:   &mcphost.PromptsCapability{},
			},
			"serverInfo": mcphost.Info{Name: "demo", Version: "1.0"},
		})
	case "ping":
		return result(msg.ID, struct{}{})
	case mcphost.MethodToolsList:
		return result(msg.ID, mcphost.ListToolsResult{Tools: toolCatalog()})
	case mcphost.MethodToolsCall:
		return s.callTool(msg)
	case mcphost.MethodResourcesList:
		return result(msg.ID, mcphost.ListResourcesResult{Resources: []mcphost.Resource{
			{URI: "demo://motd", Name: "motd", Description: "Message of the day", MimeType: "text/plain"},
		}})
	case mcphost.MethodResourcesRead:
		return s.readResource(msg)
	case mcphost.MethodPromptsList:
		return result(msg.ID, mcphost.ListPromptsResult{Prompts: []mcphost.Prompt{
			{
				Name:        "greet",
				Description: "Greet someone by name",
				Arguments:   []mcphost.PromptArgument{{Name: "name", Required: true}},
			},
		}})
	case mcphost.MethodPromptsGet:
		return s.getPrompt(msg)
	default:
		return rpcError(msg.ID, -32601, fmt.Sprintf("method %q not found", msg.Method))
	}
}

// protocolVersion echoes the client's requested version, which is all a test
// peer needs for compatibility.
func protocolVersion(params json.RawMessage) string {
	var p struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.ProtocolVersion == "" {
		return "2024-11-05"
	}
	return p.ProtocolVersion
}

func toolCatalog() []mcphost.Tool {
	return []mcphost.Tool{
		{
			Name:        "echo",
			Description: "Echo a message back",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"message": {"type": "string", "description": "Message to echo"}
				},
				"required": ["message"]
			}`),
		},
		{
			Name:        "add",
			Description: "Add two numbers",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"a": {"type": "number"},
					"b": {"type": "number"}
				},
				"required": ["a", "b"]
			}`),
		},
		{
			Name:        "diff_text",
			Description: "Produce patch text describing the change from original to modified",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"original": {"type": "string"},
					"modified": {"type": "string"}
				},
				"required": ["original", "modified"]
			}`),
		},
		{
			Name:        "match_names",
			Description: "Filter names by a glob pattern",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"pattern": {"type": "string", "description": "Glob pattern, e.g. *.go or data-*"},
					"names": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["pattern", "names"]
			}`),
		},
		{
			Name:        "fail",
			Description: "Always fails, for testing error handling",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"message": {"type": "string"}
				}
			}`),
		},
	}
}

func (s *Server) callTool(msg mcphost.JSONRPCMessage) mcphost.JSONRPCMessage {
	var params mcphost.CallToolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return rpcError(msg.ID, -32602, fmt.Sprintf("invalid params: %v", err))
	}

	switch params.Name {
	case "echo":
		message, ok := params.Arguments["message"].(string)
		if !ok {
			return rpcError(msg.ID, -32602, "message must be a string")
		}
		return toolText(msg.ID, "Echo: "+message)
	case "add":
		a, aOK := toFloat(params.Arguments["a"])
		b, bOK := toFloat(params.Arguments["b"])
		if !aOK || !bOK {
			return rpcError(msg.ID, -32602, "a and b must be numbers")
		}
		return toolText(msg.ID, "Result: "+strconv.FormatFloat(a+b, 'f', -1, 64))
	case "diff_text":
		original, _ := params.Arguments["original"].(string)
		modified, _ := params.Arguments["modified"].(string)
		return toolText(msg.ID, diffText(original, modified))
	case "match_names":
		return s.matchNames(msg.ID, params.Arguments)
	case "fail":
		message, _ := params.Arguments["message"].(string)
		if message == "" {
			message = "tool failed"
		}
		return result(msg.ID, mcphost.CallToolResult{
			Content: []mcphost.Content{{Type: mcphost.ContentTypeText, Text: message}},
			IsError: true,
		})
	default:
		return rpcError(msg.ID, -32602, fmt.Sprintf("unknown tool: %s", params.Name))
	}
}

// diffText renders the change from original to modified as patch text, with
// line endings normalized so the output is stable across platforms.
func diffText(original, modified string) string {
	original = normalizeLineEndings(original)
	modified = normalizeLineEndings(modified)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, modified, true)
	patches := dmp.PatchMake(diffs)

	var sb strings.Builder
	for _, patch := range patches {
		sb.WriteString(dmp.PatchToText([]diffmatchpatch.Patch{patch}))
	}
	return sb.String()
}

func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func (s *Server) matchNames(id mcphost.RequestID, args map[string]any) mcphost.JSONRPCMessage {
	pattern, ok := args["pattern"].(string)
	if !ok {
		return rpcError(id, -32602, "pattern must be a string")
	}
	rawNames, ok := args["names"].([]any)
	if !ok {
		return rpcError(id, -32602, "names must be an array of strings")
	}

	compiled, err := glob.Compile(pattern)
	if err != nil {
		return rpcError(id, -32602, fmt.Sprintf("invalid pattern: %v", err))
	}

	var matched []string
	for _, raw := range rawNames {
		name, ok := raw.(string)
		if !ok {
			continue
		}
		if compiled.Match(name) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)

	return toolText(id, strings.Join(matched, "\n"))
}

func (s *Server) readResource(msg mcphost.JSONRPCMessage) mcphost.JSONRPCMessage {
	var params mcphost.ReadResourceParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return rpcError(msg.ID, -32602, fmt.Sprintf("invalid params: %v", err))
	}
	if params.URI != "demo://motd" {
		return rpcError(msg.ID, -32602, fmt.Sprintf("unknown resource: %s", params.URI))
	}

	return result(msg.ID, mcphost.ReadResourceResult{Contents: []mcphost.ResourceContents{
		{URI: params.URI, MimeType: "text/plain", Text: "Hello from the demo server"},
	}})
}

func (s *Server) getPrompt(msg mcphost.JSONRPCMessage) mcphost.JSONRPCMessage {
	var params mcphost.GetPromptParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return rpcError(msg.ID, -32602, fmt.Sprintf("invalid params: %v", err))
	}
	if params.Name != "greet" {
		return rpcError(msg.ID, -32602, fmt.Sprintf("unknown prompt: %s", params.Name))
	}

	name := params.Arguments["name"]
	if name == "" {
		return rpcError(msg.ID, -32602, "name argument is required")
	}

	return result(msg.ID, mcphost.GetPromptResult{
		Description: "Greet someone by name",
		Messages: []mcphost.PromptMessage{
			{
				Role: mcphost.RoleUser,
				Content: mcphost.Content{
					Type: mcphost.ContentTypeText,
					Text: fmt.Sprintf("Please greet %s warmly.", name),
				},
			},
		},
	})
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func toolText(id mcphost.RequestID, text string) mcphost.JSONRPCMessage {
	return result(id, mcphost.CallToolResult{
		Content: []mcphost.Content{{Type: mcphost.ContentTypeText, Text: text}},
	})
}

func result(id mcphost.RequestID, payload any) mcphost.JSONRPCMessage {
	resBs, err := json.Marshal(payload)
	if err != nil {
		return rpcError(id, -32603, fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcphost.JSONRPCMessage{
		JSONRPC: mcphost.JSONRPCVersion,
		ID:      id,
		Result:  resBs,
	}
}

func rpcError(id mcphost.RequestID, code int, message string) mcphost.JSONRPCMessage {
	return mcphost.JSONRPCMessage{
		JSONRPC: mcphost.JSONRPCVersion,
		ID:      id,
		Error:   &mcphost.JSONRPCError{Code: code, Message: message},
	}
}
