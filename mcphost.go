package mcphost

import "context"

// RootsHandler answers the peer's roots/list requests with the set of
// directories or files the client is willing to expose. Set it on a Client
// with WithRootsHandler; the roots capability is advertised only when a
// handler is present.
type RootsHandler interface {
	// RootsList returns the list of available root resources.
	RootsList(ctx context.Context) (RootList, error)
}

// SamplingHandler resolves the peer's sampling/createMessage requests by
// producing an AI model response for the provided conversation history. Set it
// on a Client with WithSamplingHandler; the sampling capability is advertised
// only when a handler is present.
type SamplingHandler interface {
	// CreateSampleMessage generates a response message based on the provided
	// conversation history and parameters.
	CreateSampleMessage(ctx context.Context, params SamplingParams) (SamplingResult, error)
}

// ElicitationHandler resolves the peer's elicitation/create requests, which
// ask the client's human for additional input mid-operation. Set it on a
// Client with WithElicitationHandler; the elicitation capability is advertised
// only when a handler is present. Without a handler every elicitation request
// is declined.
type ElicitationHandler interface {
	// Elicit presents the peer's message to the user and returns the answer.
	Elicit(ctx context.Context, params ElicitationParams) (ElicitationResult, error)
}

// StaticRoots adapts a fixed list of filesystem paths into a RootsHandler.
// Paths are normalized into file:// URIs via NormalizeRoots.
type StaticRoots []string

// RootsList implements RootsHandler.
func (s StaticRoots) RootsList(context.Context) (RootList, error) {
	return RootList{Roots: NormalizeRoots(s)}, nil
}

// SamplingFunc adapts a function into a SamplingHandler.
type SamplingFunc func(ctx context.Context, params SamplingParams) (SamplingResult, error)

// CreateSampleMessage implements SamplingHandler.
func (f SamplingFunc) CreateSampleMessage(ctx context.Context, params SamplingParams) (SamplingResult, error) {
	return f(ctx, params)
}

// ElicitationFunc adapts a function into an ElicitationHandler.
type ElicitationFunc func(ctx context.Context, params ElicitationParams) (ElicitationResult, error)

// Elicit implements ElicitationHandler.
func (f ElicitationFunc) Elicit(ctx context.Context, params ElicitationParams) (ElicitationResult, error) {
	return f(ctx, params)
}
