package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestCompleteWithoutAPIKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{}, nil)

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, CompleteOptions{})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}

	_, err = client.Stream(context.Background(), nil, StreamHandlers{}, CompleteOptions{})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey from Stream, got %v", err)
	}
}

func TestClassifyAPIError(t *testing.T) {
	rateLimited := classifyAPIError(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests})
	if !errors.Is(rateLimited, ErrRateLimited) {
		t.Errorf("429 should map to ErrRateLimited, got %v", rateLimited)
	}

	unauthorized := classifyAPIError(&openai.APIError{HTTPStatusCode: http.StatusUnauthorized})
	if !errors.Is(unauthorized, ErrNoAPIKey) {
		t.Errorf("401 should map to ErrNoAPIKey, got %v", unauthorized)
	}

	serverErr := classifyAPIError(&openai.APIError{HTTPStatusCode: http.StatusBadGateway})
	if !isRetryable(serverErr) {
		t.Errorf("5xx should be retryable, got %v", serverErr)
	}

	badRequest := classifyAPIError(&openai.APIError{HTTPStatusCode: http.StatusBadRequest})
	if isRetryable(badRequest) {
		t.Errorf("4xx should not be retryable")
	}

	cancelled := classifyAPIError(context.Canceled)
	if isRetryable(cancelled) {
		t.Errorf("cancellation should not be retryable")
	}

	transport := classifyAPIError(errors.New("dial tcp: connection refused"))
	if !isRetryable(transport) {
		t.Errorf("transport failure should be retryable")
	}
}

func TestIsRetryableRateLimited(t *testing.T) {
	if !isRetryable(ErrRateLimited) {
		t.Errorf("rate limiting should be retryable")
	}
	if isRetryable(ErrParse) {
		t.Errorf("parse failures must not be retried")
	}
}
