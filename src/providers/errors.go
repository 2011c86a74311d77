package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

var (
	// ErrUnsupportedProvider is returned by Factory.Get for unknown provider ids.
	ErrUnsupportedProvider = errors.New("provider not supported")

	// ErrNoAPIKey indicates the API key is missing
	ErrNoAPIKey = errors.New("API key is required")

	// ErrBaseURLRequired is returned for custom providers without a base URL.
	ErrBaseURLRequired = errors.New("base URL is required for custom provider")

	// ErrStreamClosed indicates the stream has been closed
	ErrStreamClosed = errors.New("stream closed")

	// ErrResponseTooLarge is returned by the host transport for bodies over the cap.
	ErrResponseTooLarge = errors.New("response body too large")
)

// errorResponse covers both the OpenAI style {"error":{...}} body and the
// Anthropic style {"type":"error","error":{...}} body.
type errorResponse struct {
	Error struct {
		Type    string          `json:"type"`
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
		Status  string          `json:"status"`
	} `json:"error"`
}

// APIError represents a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
	Code       string
	RequestID  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s API error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded" || e.Type == "rate_limit_error"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "invalid_api_key" || e.Type == "authentication_error"
}

// IsServerError returns true for 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// newAPIError reads resp.Body and builds an *APIError from it.
func newAPIError(provider string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	requestID := resp.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = resp.Header.Get("Request-Id")
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		msg := string(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    msg,
			RequestID:  requestID,
		}
	}

	return &APIError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Type:       errResp.Error.Type,
		Message:    errResp.Error.Message,
		Code:       rawCode(errResp.Error.Code, errResp.Error.Status),
		RequestID:  requestID,
	}
}

// rawCode flattens a code that may be a JSON string or number.
func rawCode(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ErrorHandler logs provider errors by kind.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With("component", "error_handler"),
	}
}

// Handle logs err and returns it unchanged.
func (eh *ErrorHandler) Handle(err error, operation string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}

	logAttrs := []any{"operation", operation, "error", err.Error()}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, attr.Key, attr.Value)
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		switch {
		case apiErr.IsRateLimit():
			eh.logger.Warn("rate limited", logAttrs...)
		case apiErr.IsAuthError():
			eh.logger.Error("authentication failed", logAttrs...)
		case apiErr.IsServerError():
			eh.logger.Warn("provider server error", logAttrs...)
		default:
			eh.logger.Error("API error", logAttrs...)
		}
	case errors.Is(err, ErrUnsupportedProvider), errors.Is(err, ErrNoAPIKey), errors.Is(err, ErrBaseURLRequired):
		eh.logger.Warn("provider configuration error", logAttrs...)
	case errors.Is(err, ErrResponseTooLarge):
		eh.logger.Error("response rejected", logAttrs...)
	default:
		eh.logger.Error("error occurred", logAttrs...)
	}

	return err
}
