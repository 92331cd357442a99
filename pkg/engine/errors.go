package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lifectx/engine/pkg/llm"
)

// Code classifies engine failures for callers and metrics.
type Code string

const (
	CodeNoAPIKey    Code = "no_api_key"
	CodeRateLimited Code = "rate_limited"
	CodeNetwork     Code = "network"
	CodeParse       Code = "parse"
	CodeValidation  Code = "validation"
	CodeDatabase    Code = "database"
	CodeUnknown     Code = "unknown"
)

// Error is the engine's error type: a classification code plus the
// operation it occurred in. Entry points return this, never panic across
// the extraction/compaction boundary.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// opError wraps err with its classification for the given operation.
func opError(op string, err error) *Error {
	return &Error{Code: Classify(err), Op: op, Err: err}
}

// Classify inspects an error and returns its code. Sentinel errors from the
// llm package classify exactly; everything else falls back to inspection of
// the error text, which is lossy but good enough for grouping.
func Classify(err error) Code {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		return CodeNoAPIKey
	case errors.Is(err, llm.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, llm.ErrParse):
		return CodeParse
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return CodeNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeNetwork
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "no such host"),
		strings.Contains(errStr, "network is unreachable"),
		strings.Contains(errStr, "dial tcp"),
		strings.Contains(errStr, "timeout"):
		return CodeNetwork
	case strings.Contains(errStr, "rate limit"):
		return CodeRateLimited
	case strings.Contains(errStr, "sql"),
		strings.Contains(errStr, "database"),
		strings.Contains(errStr, "constraint"):
		return CodeDatabase
	case strings.Contains(errStr, "invalid"),
		strings.Contains(errStr, "cannot be empty"),
		strings.Contains(errStr, "must be"):
		return CodeValidation
	}

	return CodeUnknown
}
