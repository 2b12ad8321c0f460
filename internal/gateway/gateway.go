// Package gateway is the boundary through which all model text-generation
// calls are made. It exposes a single non-streaming Invoke contract plus
// provider implementations for OpenAI-compatible, Anthropic, and Gemini
// endpoints.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// Request defines a completion request. Stream must be false: the deep-think
// pipeline needs the complete text before parsing, and the contract
// guarantees a single complete string for non-streaming calls.
type Request struct {
	Messages          []Message
	Model             string
	SystemInstruction string
	Temperature       *float64
	TopP              *float64
	MaxTokens         int
	Stream            bool
}

// Client is the LLM Service Gateway consumed by the stage processors.
type Client interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// Category classifies a gateway failure.
type Category string

const (
	CategoryNetwork        Category = "network"
	CategoryAuthentication Category = "authentication"
	CategoryRateLimit      Category = "rate_limit"
	CategoryInvalidRequest Category = "invalid_request"
	CategoryModelError     Category = "model_error"
	CategoryTimeout        Category = "timeout"
	CategoryCancelled      Category = "cancelled"
	CategoryUnknown        Category = "unknown"
)

// GatewayError wraps a provider failure with its category and retry hints.
// Retryable and RetryAfter inform, but do not mandate, a retry policy at the
// caller's discretion; the pipeline itself never auto-retries.
type GatewayError struct {
	Category   Category
	Retryable  bool
	RetryAfter time.Duration
	Provider   string
	err        error
}

func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s gateway error (%s): %v", e.Provider, e.Category, e.err)
	}
	return fmt.Sprintf("gateway error (%s): %v", e.Category, e.err)
}

func (e *GatewayError) Unwrap() error { return e.err }

// NewError wraps err with a category and retryability hint.
func NewError(provider string, cat Category, retryable bool, err error) *GatewayError {
	return &GatewayError{Category: cat, Retryable: retryable, Provider: provider, err: err}
}

// AsGatewayError extracts a *GatewayError from err, if present.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	ok := errors.As(err, &ge)
	return ge, ok
}

// classifyTransport maps a transport-level error to a gateway category.
func classifyTransport(provider string, err error) *GatewayError {
	switch {
	case errors.Is(err, context.Canceled):
		return NewError(provider, CategoryCancelled, false, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(provider, CategoryTimeout, true, err)
	}
	type timeouter interface{ Timeout() bool }
	var te timeouter
	if errors.As(err, &te) && te.Timeout() {
		return NewError(provider, CategoryTimeout, true, err)
	}
	return NewError(provider, CategoryNetwork, true, err)
}

// classifyStatus maps an HTTP status to a gateway category.
func classifyStatus(provider string, status int, body string) *GatewayError {
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	err := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(provider, CategoryAuthentication, false, err)
	case status == http.StatusTooManyRequests:
		ge := NewError(provider, CategoryRateLimit, true, err)
		ge.RetryAfter = 30 * time.Second
		return ge
	case status == http.StatusBadRequest || status == http.StatusNotFound ||
		status == http.StatusUnprocessableEntity:
		return NewError(provider, CategoryInvalidRequest, false, err)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewError(provider, CategoryTimeout, true, err)
	case status >= 500:
		return NewError(provider, CategoryModelError, true, err)
	default:
		return NewError(provider, CategoryUnknown, false, err)
	}
}

// errStreamingUnsupported rejects stream=true requests up front.
func errStreamingUnsupported(provider string) error {
	return NewError(provider, CategoryInvalidRequest, false,
		errors.New("streaming is not supported by this gateway"))
}
