// Package llm provides the language-model service boundary: chat completion,
// schema-constrained extraction and cancellable streaming.
package llm

import (
	"context"
	"errors"
)

// ErrNoAPIKey indicates the client was constructed without credentials.
var ErrNoAPIKey = errors.New("no API key configured")

// ErrRateLimited indicates the provider rejected the request for rate limits.
var ErrRateLimited = errors.New("rate limited by language model provider")

// ErrParse indicates the model returned output that could not be coerced into
// the requested schema even after all recovery strategies.
var ErrParse = errors.New("language model returned unparsable output")

// Message is a single chat message.
type Message struct {
	Role    string
	Content string
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompleteOptions configure a completion or streaming call.
type CompleteOptions struct {
	System      string
	MaxTokens   int
	Temperature float32
}

// ExtractOptions configure a schema-constrained extraction call.
type ExtractOptions struct {
	Temperature float32
}

// StreamHandlers receive streaming output. After Cancel is called no further
// handlers fire; the underlying request is not guaranteed to be aborted
// server-side.
type StreamHandlers struct {
	OnDelta func(text string)
	OnEnd   func(full string)
	OnError func(err error)
}

// CancelFunc stops delivery of further stream callbacks.
type CancelFunc func()

// Client is the engine's view of the language-model service. Implementations
// must tolerate malformed model output on Extract and surface it as ErrParse.
type Client interface {
	// Complete sends messages and returns the full completion text.
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)

	// Extract sends a prompt plus input text and unmarshals the JSON response
	// into out (a pointer to one of the closed set of schema types).
	Extract(ctx context.Context, prompt, input string, out any, opts ExtractOptions) error

	// Stream sends messages and delivers the response incrementally.
	// The returned CancelFunc stops further callbacks.
	Stream(ctx context.Context, messages []Message, handlers StreamHandlers, opts CompleteOptions) (CancelFunc, error)
}
