package mcphost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// sessionState tracks the protocol handshake progress of a Client.
type sessionState int

const (
	stateUninitialized sessionState = iota
	stateInitializing
	stateReady
	stateClosed
)

// ClientOption is a function that configures a client.
type ClientOption func(*Client)

// Client implements the client half of the Model Context Protocol over a
// Transport. It performs the initialize handshake, assigns monotonically
// increasing request identifiers, and correlates every request to its
// response.
//
// The client does not pipeline: each request is fully sent and its response
// fully received before the next request may begin. Correlation by identifier
// is therefore a protocol contract with the peer enforced by strict
// sequencing; messages the peer initiates while a response is pending (pings,
// roots/sampling/elicitation requests, notifications) are serviced inline by
// the read loop. A Client is not safe for concurrent use by itself; the
// Runner provides the serialization when multiple goroutines share a session.
type Client struct {
	transport Transport
	info      Info
	logger    *slog.Logger

	rootsHandler       RootsHandler
	samplingHandler    SamplingHandler
	elicitationHandler ElicitationHandler

	protocolVersion string

	state              sessionState
	nextID             RequestID
	serverInfo         Info
	serverCapabilities ServerCapabilities
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRootsHandler sets the roots handler for the client and advertises the
// roots capability during the handshake.
func WithRootsHandler(handler RootsHandler) ClientOption {
	return func(c *Client) {
		c.rootsHandler = handler
	}
}

// WithSamplingHandler sets the sampling handler for the client and advertises
// the sampling capability during the handshake.
func WithSamplingHandler(handler SamplingHandler) ClientOption {
	return func(c *Client) {
		c.samplingHandler = handler
	}
}

// WithElicitationHandler sets the elicitation handler for the client and
// advertises the elicitation capability during the handshake.
func WithElicitationHandler(handler ElicitationHandler) ClientOption {
	return func(c *Client) {
		c.elicitationHandler = handler
	}
}

// WithProtocolVersion overrides the protocol version named in the initialize
// request.
func WithProtocolVersion(version string) ClientOption {
	return func(c *Client) {
		c.protocolVersion = version
	}
}

// NewClient creates a protocol client on top of the given transport. The info
// parameter identifies this client to the peer during the handshake.
//
// The client performs no I/O until Initialize is called.
func NewClient(info Info, transport Transport, options ...ClientOption) *Client {
	c := &Client{
		transport:       transport,
		info:            info,
		logger:          slog.Default(),
		protocolVersion: protocolVersion,
		nextID:          1,
	}
	for _, opt := range options {
		opt(c)
	}

	return c
}

// Initialize performs the protocol handshake: it sends the initialize request
// naming the protocol version and client identity, stores the peer's
// capabilities from the response, and emits the notifications/initialized
// notification. It is only valid on an uninitialized client.
//
// If the peer answers with an error envelope the client stays uninitialized
// and a *HandshakeError carrying the peer's message is returned.
func (c *Client) Initialize(ctx context.Context) error {
	if c.state != stateUninitialized {
		return fmt.Errorf("initialize called in state %d", c.state)
	}
	c.state = stateInitializing

	caps := ClientCapabilities{}
	if c.rootsHandler != nil {
		caps.Roots = &RootsCapability{}
	}
	if c.samplingHandler != nil {
		caps.Sampling = &SamplingCapability{}
	}
	if c.elicitationHandler != nil {
		caps.Elicitation = &ElicitationCapability{}
	}

	params := initializeParams{
		ProtocolVersion: c.protocolVersion,
		Capabilities:    caps,
		ClientInfo:      c.info,
	}
	res, err := c.request(ctx, methodInitialize, params)
	if err != nil {
		c.state = stateUninitialized
		return err
	}
	if res.Error != nil {
		c.state = stateUninitialized
		return &HandshakeError{Message: res.Error.Message}
	}

	var result initializeResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		c.state = stateUninitialized
		return fmt.Errorf("failed to unmarshal initialize result: %w", err)
	}

	c.serverInfo = result.ServerInfo
	c.serverCapabilities = result.Capabilities
	c.state = stateReady

	c.logger.Debug("session initialized",
		slog.String("server", result.ServerInfo.Name),
		slog.String("version", result.ServerInfo.Version),
		slog.String("protocolVersion", result.ProtocolVersion))

	// The initialized notification is one-way: no response is expected and it
	// carries no identifier.
	return c.notify(methodNotificationsInitialized, nil)
}

// ListTools retrieves the tool catalog from the peer. It is valid only after
// Initialize; otherwise it fails with ErrNotReady. Peer-side errors surface as
// a *DiscoveryError.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if c.state != stateReady {
		return nil, fmt.Errorf("%s: %w", MethodToolsList, ErrNotReady)
	}

	res, err := c.request(ctx, MethodToolsList, struct{}{})
	if err != nil {
		return nil, err
	}
	if res.Error != nil {
		return nil, &DiscoveryError{Method: MethodToolsList, Err: res.Error}
	}

	var result ListToolsResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s result: %w", MethodToolsList, err)
	}
	return result.Tools, nil
}

// CallTool invokes the named tool with the given arguments and returns the
// result payload verbatim. It is valid only after Initialize; otherwise it
// fails with ErrNotReady. Peer-side error envelopes surface as a
// *InvocationError carrying the peer's message.
//
// Note that a result with IsError set is returned as-is; interpreting it is
// the caller's concern, since the content blocks may still carry usable
// context.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (CallToolResult, error) {
	if c.state != stateReady {
		return CallToolResult{}, fmt.Errorf("%s: %w", MethodToolsCall, ErrNotReady)
	}

	params := CallToolParams{
		Name:      name,
		Arguments: arguments,
	}
	res, err := c.request(ctx, MethodToolsCall, params)
	if err != nil {
		return CallToolResult{}, err
	}
	if res.Error != nil {
		return CallToolResult{}, &InvocationError{Tool: name, Message: res.Error.Message}
	}

	var result CallToolResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return CallToolResult{}, fmt.Errorf("failed to unmarshal %s result: %w", MethodToolsCall, err)
	}
	return result, nil
}

// ListResources retrieves the resource catalog from the peer. It fails with
// ErrNotReady before Initialize and surfaces peer-side errors as a
// *DiscoveryError.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	if c.state != stateReady {
		return nil, fmt.Errorf("%s: %w", MethodResourcesList, ErrNotReady)
	}

	res, err := c.request(ctx, MethodResourcesList, struct{}{})
	if err != nil {
		return nil, err
	}
	if res.Error != nil {
		return nil, &DiscoveryError{Method: MethodResourcesList, Err: res.Error}
	}

	var result ListResourcesResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s result: %w", MethodResourcesList, err)
	}
	return result.Resources, nil
}

// ReadResource retrieves the contents of a specific resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (ReadResourceResult, error) {
	if c.state != stateReady {
		return ReadResourceResult{}, fmt.Errorf("%s: %w", MethodResourcesRead, ErrNotReady)
	}

	res, err := c.request(ctx, MethodResourcesRead, ReadResourceParams{URI: uri})
	if err != nil {
		return ReadResourceResult{}, err
	}
	if res.Error != nil {
		return ReadResourceResult{}, &DiscoveryError{Method: MethodResourcesRead, Err: res.Error}
	}

	var result ReadResourceResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return ReadResourceResult{}, fmt.Errorf("failed to unmarshal %s result: %w", MethodResourcesRead, err)
	}
	return result, nil
}

// ListPrompts retrieves the prompt catalog from the peer.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	if c.state != stateReady {
		return nil, fmt.Errorf("%s: %w", MethodPromptsList, ErrNotReady)
	}

	res, err := c.request(ctx, MethodPromptsList, struct{}{})
	if err != nil {
		return nil, err
	}
	if res.Error != nil {
		return nil, &DiscoveryError{Method: MethodPromptsList, Err: res.Error}
	}

	var result ListPromptsResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s result: %w", MethodPromptsList, err)
	}
	return result.Prompts, nil
}

// GetPrompt retrieves a specific prompt by name with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, params GetPromptParams) (GetPromptResult, error) {
	if c.state != stateReady {
		return GetPromptResult{}, fmt.Errorf("%s: %w", MethodPromptsGet, ErrNotReady)
	}

	res, err := c.request(ctx, MethodPromptsGet, params)
	if err != nil {
		return GetPromptResult{}, err
	}
	if res.Error != nil {
		return GetPromptResult{}, &DiscoveryError{Method: MethodPromptsGet, Err: res.Error}
	}

	var result GetPromptResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return GetPromptResult{}, fmt.Errorf("failed to unmarshal %s result: %w", MethodPromptsGet, err)
	}
	return result, nil
}

// Ping sends a protocol-level ping and waits for the empty response.
func (c *Client) Ping(ctx context.Context) error {
	if c.state != stateReady {
		return fmt.Errorf("%s: %w", methodPing, ErrNotReady)
	}

	res, err := c.request(ctx, methodPing, struct{}{})
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("ping failed: %w", res.Error)
	}
	return nil
}

// ServerInfo returns the peer's identity as reported during the handshake.
func (c *Client) ServerInfo() Info {
	return c.serverInfo
}

// ServerCapabilities returns the capability set the peer advertised during the
// handshake.
func (c *Client) ServerCapabilities() ServerCapabilities {
	return c.serverCapabilities
}

// Ready reports whether the handshake has completed.
func (c *Client) Ready() bool {
	return c.state == stateReady
}

// Close marks the client closed and closes the underlying transport. It is
// idempotent.
func (c *Client) Close() error {
	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed
	return c.transport.Close()
}

// request allocates the next identifier, sends the request, and reads until
// the correlated response arrives. Peer-initiated traffic that shows up in
// between is dispatched by handleServerMessage; responses with an unknown
// identifier are dropped with a warning, since strict sequencing means they
// can only belong to an abandoned exchange.
func (c *Client) request(ctx context.Context, method string, params any) (JSONRPCMessage, error) {
	paramsBs, err := json.Marshal(params)
	if err != nil {
		return JSONRPCMessage{}, fmt.Errorf("failed to marshal params: %w", err)
	}

	id := c.nextID
	c.nextID++

	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  paramsBs,
	}
	if err := c.transport.Send(msg); err != nil {
		return JSONRPCMessage{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return JSONRPCMessage{}, err
		}

		res, err := c.transport.Receive()
		if err != nil {
			return JSONRPCMessage{}, err
		}

		if res.Method != "" {
			c.handleServerMessage(ctx, res)
			continue
		}

		if res.ID != id {
			c.logger.Warn("dropping response with unexpected id",
				slog.Int64("got", int64(res.ID)),
				slog.Int64("want", int64(id)))
			continue
		}

		return res, nil
	}
}

// notify sends a fire-and-forget notification: a request without an
// identifier, for which no response is expected.
func (c *Client) notify(method string, params any) error {
	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
	}
	if params != nil {
		paramsBs, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		msg.Params = paramsBs
	}

	return c.transport.Send(msg)
}

// handleServerMessage services a message the peer initiated while the client
// was waiting for a response. Requests are answered immediately on the same
// stream; notifications are logged and skipped.
func (c *Client) handleServerMessage(ctx context.Context, msg JSONRPCMessage) {
	if msg.ID == 0 {
		c.logger.Debug("peer notification", slog.String("method", msg.Method))
		return
	}

	switch msg.Method {
	case methodPing:
		c.respondResult(msg.ID, struct{}{})
	case MethodRootsList:
		c.handleRootsList(ctx, msg)
	case MethodSamplingCreateMessage:
		c.handleSampling(ctx, msg)
	case MethodElicitationCreate:
		c.handleElicitation(ctx, msg)
	default:
		c.respondError(msg.ID, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: fmt.Sprintf("method %q not supported", msg.Method),
		})
	}
}

func (c *Client) handleRootsList(ctx context.Context, msg JSONRPCMessage) {
	if c.rootsHandler == nil {
		c.respondError(msg.ID, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: "roots not supported",
		})
		return
	}

	roots, err := c.rootsHandler.RootsList(ctx)
	if err != nil {
		c.respondError(msg.ID, JSONRPCError{
			Code:    jsonRPCInternalErrorCode,
			Message: err.Error(),
		})
		return
	}
	c.respondResult(msg.ID, roots)
}

func (c *Client) handleSampling(ctx context.Context, msg JSONRPCMessage) {
	if c.samplingHandler == nil {
		c.respondError(msg.ID, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: "sampling not supported",
		})
		return
	}

	var params SamplingParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		c.respondError(msg.ID, JSONRPCError{
			Code:    jsonRPCInvalidParamsCode,
			Message: err.Error(),
		})
		return
	}

	result, err := c.samplingHandler.CreateSampleMessage(ctx, params)
	if err != nil {
		c.respondError(msg.ID, JSONRPCError{
			Code:    jsonRPCInternalErrorCode,
			Message: err.Error(),
		})
		return
	}
	c.respondResult(msg.ID, result)
}

func (c *Client) handleElicitation(ctx context.Context, msg JSONRPCMessage) {
	if c.elicitationHandler == nil {
		// Without a handler the only honest answer is a decline.
		c.respondResult(msg.ID, ElicitationResult{Action: "decline"})
		return
	}

	var params ElicitationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		c.respondError(msg.ID, JSONRPCError{
			Code:    jsonRPCInvalidParamsCode,
			Message: err.Error(),
		})
		return
	}

	result, err := c.elicitationHandler.Elicit(ctx, params)
	if err != nil {
		c.respondError(msg.ID, JSONRPCError{
			Code:    jsonRPCInternalErrorCode,
			Message: err.Error(),
		})
		return
	}
	c.respondResult(msg.ID, result)
}

func (c *Client) respondResult(id RequestID, result any) {
	resBs, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("failed to marshal result", slog.String("err", err.Error()))
		return
	}

	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  resBs,
	}
	if err := c.transport.Send(msg); err != nil {
		c.logger.Error("failed to send result", slog.String("err", err.Error()))
	}
}

func (c *Client) respondError(id RequestID, rpcErr JSONRPCError) {
	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &rpcErr,
	}
	if err := c.transport.Send(msg); err != nil {
		c.logger.Error("failed to send error", slog.String("err", err.Error()))
	}
}
