package mcphost

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Server is a loaded session with an MCP peer: the user-facing contract of
// this package. Load starts the peer process, performs the handshake, and
// discovers the tool catalog once; afterwards tools are invoked by name as if
// they were local functions, from any goroutine.
//
// All protocol I/O for a Server runs on its Runner's single background
// goroutine, so concurrent callers are serialized and every call maps to one
// full request/response round trip on the wire.
type Server struct {
	transport Transport
	client    *Client
	runner    *Runner
	logger    *slog.Logger

	// catalog is an immutable snapshot, replaced wholesale on refresh so
	// readers never observe a half-updated catalog.
	catalog atomic.Pointer[toolCatalog]

	closeOnce sync.Once
	closeErr  error
}

type toolCatalog struct {
	tools []Tool
	index map[string]Tool
	names []string // sorted, for error messages
}

// LoadOption is a function that configures a Load call.
type LoadOption func(*loadConfig)

type loadConfig struct {
	info               Info
	logger             *slog.Logger
	roots              []string
	samplingHandler    SamplingHandler
	elicitationHandler ElicitationHandler
	protocolVersion    string
	gracePeriod        time.Duration
	noRegistry         bool
}

// WithInfo sets the client identity announced during the handshake.
func WithInfo(info Info) LoadOption {
	return func(cfg *loadConfig) {
		cfg.info = info
	}
}

// WithHostLogger sets the logger used by the session's transport and client.
func WithHostLogger(logger *slog.Logger) LoadOption {
	return func(cfg *loadConfig) {
		cfg.logger = logger
	}
}

// WithRoots exposes the given filesystem paths to the peer via roots/list.
func WithRoots(paths ...string) LoadOption {
	return func(cfg *loadConfig) {
		cfg.roots = paths
	}
}

// WithSampling sets the handler that resolves the peer's model-sampling
// requests.
func WithSampling(handler SamplingHandler) LoadOption {
	return func(cfg *loadConfig) {
		cfg.samplingHandler = handler
	}
}

// WithElicitation sets the handler that resolves the peer's requests for
// human input.
func WithElicitation(handler ElicitationHandler) LoadOption {
	return func(cfg *loadConfig) {
		cfg.elicitationHandler = handler
	}
}

// WithHostProtocolVersion overrides the protocol version named in the
// handshake.
func WithHostProtocolVersion(version string) LoadOption {
	return func(cfg *loadConfig) {
		cfg.protocolVersion = version
	}
}

// WithShutdownGracePeriod sets how long Close waits for the peer process to
// exit before killing it.
func WithShutdownGracePeriod(d time.Duration) LoadOption {
	return func(cfg *loadConfig) {
		cfg.gracePeriod = d
	}
}

// WithoutRegistry disables friendly-name resolution through the local server
// registry; the launch spec is always treated as a literal command.
func WithoutRegistry() LoadOption {
	return func(cfg *loadConfig) {
		cfg.noRegistry = true
	}
}

// Load launches an MCP server and returns a ready session. The spec is either
// a shell-like command string, split on whitespace into an argument vector, or
// a friendly name previously stored with Register.
//
// On any failure during launch, handshake, or discovery the error of the
// failing step is returned unchanged and no partial session is left behind:
// an already-started peer process is shut down before Load returns.
func Load(ctx context.Context, spec string, options ...LoadOption) (*Server, error) {
	cfg := newLoadConfig(options)

	command := ParseCommand(spec)
	if !cfg.noRegistry && isRegistryName(spec) {
		if registered, err := Command(spec); err == nil {
			command = ParseCommand(registered)
		}
	}

	return loadCommand(ctx, command, cfg)
}

// LoadArgs is Load for a pre-split argument vector, passed through unchanged.
func LoadArgs(ctx context.Context, argv []string, options ...LoadOption) (*Server, error) {
	return loadCommand(ctx, argv, newLoadConfig(options))
}

// LoadTransport runs the load sequence over a caller-supplied transport. It
// is the hook for transports other than child-process standard streams.
func LoadTransport(ctx context.Context, transport Transport, options ...LoadOption) (*Server, error) {
	return loadTransport(ctx, transport, newLoadConfig(options))
}

func newLoadConfig(options []LoadOption) *loadConfig {
	cfg := &loadConfig{
		info:   Info{Name: "mcphost", Version: "0.1.0"},
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// isRegistryName reports whether spec looks like a friendly name rather than
// a command: a single token with no path separator.
func isRegistryName(spec string) bool {
	spec = strings.TrimSpace(spec)
	return spec != "" && !strings.ContainsAny(spec, " \t/\\")
}

func loadCommand(ctx context.Context, command []string, cfg *loadConfig) (*Server, error) {
	sOpts := []StdioOption{WithStdioLogger(cfg.logger)}
	if cfg.gracePeriod > 0 {
		sOpts = append(sOpts, WithGracePeriod(cfg.gracePeriod))
	}
	return loadTransport(ctx, NewStdioTransport(command, sOpts...), cfg)
}

func loadTransport(ctx context.Context, transport Transport, cfg *loadConfig) (*Server, error) {
	cOpts := []ClientOption{WithLogger(cfg.logger)}
	if len(cfg.roots) > 0 {
		cOpts = append(cOpts, WithRootsHandler(StaticRoots(cfg.roots)))
	}
	if cfg.samplingHandler != nil {
		cOpts = append(cOpts, WithSamplingHandler(cfg.samplingHandler))
	}
	if cfg.elicitationHandler != nil {
		cOpts = append(cOpts, WithElicitationHandler(cfg.elicitationHandler))
	}
	if cfg.protocolVersion != "" {
		cOpts = append(cOpts, WithProtocolVersion(cfg.protocolVersion))
	}

	if err := transport.Connect(); err != nil {
		return nil, err
	}

	s := &Server{
		transport: transport,
		client:    NewClient(cfg.info, transport, cOpts...),
		runner:    NewRunner(),
		logger:    cfg.logger,
	}

	err := s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.client.Initialize(ctx); err != nil {
			return err
		}
		tools, err := s.client.ListTools(ctx)
		if err != nil {
			return err
		}
		s.catalog.Store(newToolCatalog(tools))
		return nil
	})
	if err != nil {
		// No partial session escapes: reclaim the runner and the peer
		// process, then surface the failing step's error unchanged.
		s.runner.Close()
		if cErr := transport.Close(); cErr != nil {
			s.logger.Error("failed to close transport after load failure",
				slog.String("err", cErr.Error()))
		}
		return nil, err
	}

	return s, nil
}

func newToolCatalog(tools []Tool) *toolCatalog {
	cat := &toolCatalog{
		tools: tools,
		index: make(map[string]Tool, len(tools)),
		names: make([]string, 0, len(tools)),
	}
	for _, tool := range tools {
		cat.index[tool.Name] = tool
		cat.names = append(cat.names, tool.Name)
	}
	sort.Strings(cat.names)
	return cat
}

// Call invokes the named tool with the given arguments and returns a
// caller-friendly result: when the peer's answer contains text content
// blocks, their concatenation is returned as a string; otherwise the content
// blocks are passed through unchanged as []Content.
//
// A name absent from the catalog fails with a *UnknownToolError listing the
// currently known tools. A result the peer flags as an error fails with a
// *InvocationError carrying the peer's message.
func (s *Server) Call(ctx context.Context, name string, arguments map[string]any) (any, error) {
	cat := s.catalog.Load()
	if _, ok := cat.index[name]; !ok {
		return nil, &UnknownToolError{Name: name, Available: cat.names}
	}

	var result CallToolResult
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.client.CallTool(ctx, name, arguments)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.IsError {
		return nil, &InvocationError{Tool: name, Message: errorMessage(result.Content)}
	}

	return unwrapContent(result.Content), nil
}

// unwrapContent extracts the caller-friendly value from a tool result: the
// concatenated text when any text blocks exist, the raw blocks otherwise.
func unwrapContent(content []Content) any {
	hasText := false
	for _, c := range content {
		if c.Type == ContentTypeText {
			hasText = true
			break
		}
	}
	if !hasText {
		return content
	}
	return contentText(content)
}

// errorMessage renders a failed result's content for the error string. A peer
// may flag an error with no text blocks at all; fall back to the blocks' JSON
// so the error stays actionable.
func errorMessage(content []Content) string {
	if text := contentText(content); text != "" {
		return text
	}
	if len(content) == 0 {
		return "tool reported an error with no content"
	}
	data, err := json.Marshal(content)
	if err != nil {
		return "tool reported an error with no content"
	}
	return string(data)
}

func contentText(content []Content) string {
	var sb strings.Builder
	for _, c := range content {
		if c.Type == ContentTypeText {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

// Tools returns the discovered tool catalog in function-calling shape: name,
// description, and input schema. Every access returns a fresh deep copy, so
// mutating the returned slice never affects the session's own catalog.
func (s *Server) Tools() []Tool {
	cat := s.catalog.Load()

	tools := make([]Tool, len(cat.tools))
	for i, tool := range cat.tools {
		tools[i] = Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: append([]byte(nil), tool.InputSchema...),
		}
	}
	return tools
}

// RefreshTools re-runs tool discovery and installs the new catalog as a whole;
// concurrent readers see either the old snapshot or the new one, never a mix.
func (s *Server) RefreshTools(ctx context.Context) error {
	var tools []Tool
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		tools, err = s.client.ListTools(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.catalog.Store(newToolCatalog(tools))
	return nil
}

// Resources lists the resources the peer advertises.
func (s *Server) Resources(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		resources, err = s.client.ListResources(ctx)
		return err
	})
	return resources, err
}

// ReadResource reads a resource by URI and unwraps it the same way Call
// unwraps tool results: concatenated text when text contents exist, the raw
// []ResourceContents otherwise.
func (s *Server) ReadResource(ctx context.Context, uri string) (any, error) {
	var result ReadResourceResult
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.client.ReadResource(ctx, uri)
		return err
	})
	if err != nil {
		return nil, err
	}

	hasText := false
	for _, c := range result.Contents {
		if c.Text != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		return result.Contents, nil
	}

	var sb strings.Builder
	for _, c := range result.Contents {
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}

// Prompts lists the prompts the peer advertises.
func (s *Server) Prompts(ctx context.Context) ([]Prompt, error) {
	var prompts []Prompt
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		prompts, err = s.client.ListPrompts(ctx)
		return err
	})
	return prompts, err
}

// Prompt retrieves a prompt by name with the given arguments.
func (s *Server) Prompt(ctx context.Context, name string, arguments map[string]string) (GetPromptResult, error) {
	var result GetPromptResult
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.client.GetPrompt(ctx, GetPromptParams{Name: name, Arguments: arguments})
		return err
	})
	return result, err
}

// Info returns the peer's identity as reported during the handshake.
func (s *Server) Info() Info {
	return s.client.ServerInfo()
}

// Close shuts the session down: it terminates the peer process and stops the
// runner. It is safe to call multiple times; calls after the first return
// the first call's result.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		// The transport must go down before the runner is joined: an in-flight
		// call may be blocked in Receive on an unresponsive peer, and closing
		// the transport is what unblocks it so the worker can finish its job.
		// The client itself is only marked closed once the worker has drained,
		// since it is not safe for concurrent use.
		s.closeErr = s.transport.Close()
		s.runner.Close()
		if err := s.client.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
