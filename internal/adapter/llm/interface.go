// Package llm provides an abstraction for OpenAI-compatible model endpoints.
package llm

import "context"

// LLMClient defines the model operations the verification pipeline depends on.
type LLMClient interface {
	// CreateChatCompletionStream sends a streaming chat completion request.
	// The callback is called for each chunk received; a callback error stops the stream
	// and is returned unchanged.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error)

	// ListModels retrieves the list of available models. Readiness checks use it to probe
	// the endpoint without spending tokens.
	ListModels(ctx context.Context) ([]Model, error)
}

// StreamCallback is called for each chunk in a streaming response.
type StreamCallback func(chunk *StreamChunk) error

var _ LLMClient = (*Client)(nil)
