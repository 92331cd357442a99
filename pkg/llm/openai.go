package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultModel      = "gpt-4o-mini"
	maxRetries        = 3
	initialRetryDelay = 1 * time.Second
	backoffFactor     = 2.0
)

// OpenAIClient implements Client against any OpenAI-compatible chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
	apiKey string
}

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, for proxies and compatible providers
	Model   string // default: gpt-4o-mini
}

// NewOpenAIClient creates a new client. The API key is validated lazily so a
// key-less client can be constructed in tests; every call fails with
// ErrNoAPIKey instead.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
		apiKey: cfg.APIKey,
	}
}

// Complete sends messages and returns the completion text, retrying
// transient failures with exponential backoff and jitter.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	req := c.buildRequest(messages, opts)

	var lastErr error
	delay := initialRetryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Jitter between 0.5x and 1.5x of the current delay.
			jitter := delay/2 + time.Duration(rand.Int63n(int64(delay)))
			select {
			case <-time.After(jitter):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay = time.Duration(float64(delay) * backoffFactor)
			c.logger.Warn("retrying language model request",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("no completion choices returned")
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = classifyAPIError(err)
		if !isRetryable(lastErr) || ctx.Err() != nil {
			return "", lastErr
		}
	}

	return "", fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// Extract sends a prompt plus input and unmarshals the JSON response into
// out, with lenient parsing for non-conforming model output.
func (c *OpenAIClient) Extract(ctx context.Context, prompt, input string, out any, opts ExtractOptions) error {
	messages := []Message{{Role: RoleUser, Content: prompt + "\n\n" + input}}
	response, err := c.Complete(ctx, messages, CompleteOptions{Temperature: opts.Temperature})
	if err != nil {
		return err
	}
	return UnmarshalLenient(response, out)
}

// Stream sends messages and delivers the response via handlers. The returned
// CancelFunc stops further callbacks; the server-side request may still run
// to completion.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, handlers StreamHandlers, opts CompleteOptions) (CancelFunc, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	req := c.buildRequest(messages, opts)
	req.Stream = true

	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := c.client.CreateChatCompletionStream(streamCtx, req)
	if err != nil {
		cancel()
		return nil, classifyAPIError(err)
	}

	go func() {
		defer stream.Close()
		defer cancel()

		var full strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				if handlers.OnEnd != nil {
					handlers.OnEnd(full.String())
				}
				return
			}
			if err != nil {
				if streamCtx.Err() != nil {
					// Cancelled by the caller; stay silent.
					return
				}
				if handlers.OnError != nil {
					handlers.OnError(classifyAPIError(err))
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if handlers.OnDelta != nil {
				handlers.OnDelta(delta)
			}
		}
	}()

	return CancelFunc(cancel), nil
}

func (c *OpenAIClient) buildRequest(messages []Message, opts CompleteOptions) openai.ChatCompletionRequest {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if opts.System != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
}

// classifyAPIError maps provider errors onto the package sentinels where a
// category is recognizable, otherwise returns the error unchanged.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrNoAPIKey, err)
		case apiErr.HTTPStatusCode >= 500:
			return &retryableError{err: err}
		}
		return err
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		if reqErr.HTTPStatusCode >= 500 {
			return &retryableError{err: err}
		}
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Transport-level failures (connection refused, DNS, resets) are worth
	// retrying.
	return &retryableError{err: err}
}

// retryableError marks an error that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var re *retryableError
	if errors.As(err, &re) {
		return true
	}
	return errors.Is(err, ErrRateLimited)
}
