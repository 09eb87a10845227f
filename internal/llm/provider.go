package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

// defines the interface for LLM providers
//
// Adapters translate a GenerationRequest into one wire call and back. They do
// not retry; fallback across providers belongs to the Router.
type Provider interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error)
	GetProviderName() string
}

// represents an error from an LLM provider
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a ProviderError against the sentinel of its code.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Code == ErrCodeRateLimit
	case ErrTimeout:
		return e.Code == ErrCodeTimeout
	case ErrInvalidResponse:
		return e.Code == ErrCodeInvalidResponse
	}
	return false
}

// Common error codes
// For current and future use across different providers
const (
	ErrCodeAPIKey          = "invalid_api_key"
	ErrCodeRateLimit       = "rate_limit_exceeded"
	ErrCodeServiceDown     = "service_unavailable"
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeTimeout         = "timeout"
	ErrCodeInvalidResponse = "invalid_response"
	ErrCodeUnknown         = "unknown"
)

var (
	ErrRateLimited           = errors.New("provider rate limited")
	ErrTimeout               = errors.New("provider timed out")
	ErrInvalidResponse       = errors.New("provider returned an invalid response")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)

// ErrorCode reports the failure kind carried by err.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	if IsTimeout(err) {
		return ErrCodeTimeout
	}
	return ErrCodeUnknown
}

// IsTimeout matches context deadlines and network-level timeouts.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// StatusError maps an HTTP status returned by a backend to a ProviderError.
func StatusError(provider string, status int, err error) *ProviderError {
	switch {
	case status == http.StatusTooManyRequests:
		return &ProviderError{Provider: provider, Code: ErrCodeRateLimit, Message: "Rate limit exceeded", Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ProviderError{Provider: provider, Code: ErrCodeAPIKey, Message: "Request was not authorized", Err: err}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &ProviderError{Provider: provider, Code: ErrCodeTimeout, Message: "Request timed out", Err: err}
	case status >= 400 && status < 500:
		return &ProviderError{Provider: provider, Code: ErrCodeInvalidInput, Message: "Request was rejected", Err: err}
	default:
		return &ProviderError{Provider: provider, Code: ErrCodeServiceDown, Message: "Service unavailable", Err: err}
	}
}

// TransportError classifies an error that carries no HTTP status.
func TransportError(provider string, err error) *ProviderError {
	if IsTimeout(err) {
		return &ProviderError{Provider: provider, Code: ErrCodeTimeout, Message: "Request timed out", Err: err}
	}
	return &ProviderError{Provider: provider, Code: ErrCodeServiceDown, Message: "Request failed", Err: err}
}

// InvalidResponse reports a body that could not be used.
func InvalidResponse(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Code: ErrCodeInvalidResponse, Message: message, Err: err}
}
