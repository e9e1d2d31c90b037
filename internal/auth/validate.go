package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/redo-ai/internal/chat"
	"github.com/fpang/redo-ai/internal/metrics"
)

// ValidationError represents a specific type of API key validation failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes validation failures.
type ValidationErrorType int

const (
	// ErrTypeNoKey indicates no API key was supplied.
	ErrTypeNoKey ValidationErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey
	// ErrTypePermissionDenied indicates the key works but cannot use the
	// model, usually because billing is off.
	ErrTypePermissionDenied
	// ErrTypeNetworkError indicates a network connectivity issue.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota has been exceeded.
	ErrTypeQuotaExceeded
	// ErrTypeUnknown indicates an unknown error occurred.
	ErrTypeUnknown
)

func (t ValidationErrorType) String() string {
	switch t {
	case ErrTypeNoKey:
		return "no_key"
	case ErrTypeInvalidKey:
		return "invalid"
	case ErrTypePermissionDenied:
		return "permission_denied"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeQuotaExceeded:
		return "quota"
	}
	return "unknown"
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateAPIKey verifies a bring-your-own key by making a minimal call
// through models. It returns nil if the key works, or a *ValidationError.
func ValidateAPIKey(ctx context.Context, models chat.ContentGenerator) error {
	log.Debug().Msg("Validating API key with Gemini API")

	start := time.Now()
	err := chat.Probe(ctx, models)
	elapsed := time.Since(start)

	result := "success"
	var valErr *ValidationError
	if err != nil {
		valErr = classifyError(err)
		result = valErr.Type.String()
	}

	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Duration("ApiKeyValidationMs", elapsed).
		Count("ApiKeyValidationResult").
		Flush()

	log.Debug().Str("result", result).Dur("duration", elapsed).Msg("API key validation result")
	if valErr != nil {
		return valErr
	}
	return nil
}

// ValidateKey builds a client for apiKey and validates it.
func ValidateKey(ctx context.Context, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return &ValidationError{Type: ErrTypeNoKey, Message: "API key is empty"}
	}
	client, err := chat.NewClient(ctx, apiKey)
	if err != nil {
		return &ValidationError{Type: ErrTypeUnknown, Message: "Failed to create Gemini client", Err: err}
	}
	return ValidateAPIKey(ctx, client.Models)
}

// classifyError analyzes an error and returns a ValidationError with the appropriate type.
func classifyError(err error) *ValidationError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyAPIError(*apiErrPtr, err)
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "api key not valid") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "api_key_invalid"):
		log.Warn().Err(err).Msg("Invalid API key")
		return &ValidationError{Type: ErrTypeInvalidKey, Message: "API key is invalid or has been revoked", Err: err}

	case strings.Contains(errLower, "permission_denied") ||
		strings.Contains(errLower, "permission denied"):
		log.Warn().Err(err).Msg("API key lacks permission")
		return &ValidationError{Type: ErrTypePermissionDenied, Message: "API key cannot use the model; check billing", Err: err}

	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "resource_exhausted") ||
		strings.Contains(errLower, "rate limit"):
		log.Warn().Err(err).Msg("API quota exceeded")
		return &ValidationError{Type: ErrTypeQuotaExceeded, Message: "API quota exceeded or rate limited", Err: err}

	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		log.Warn().Err(err).Msg("Network error during API validation")
		return &ValidationError{Type: ErrTypeNetworkError, Message: "Network error - check your internet connection", Err: err}
	}

	log.Error().Err(err).Msg("Unknown error during API validation")
	return &ValidationError{Type: ErrTypeUnknown, Message: "Failed to validate API key", Err: err}
}

// classifyAPIError categorizes a Google API error.
func classifyAPIError(apiErr genai.APIError, err error) *ValidationError {
	switch apiErr.Code {
	case 400:
		return &ValidationError{Type: ErrTypeInvalidKey, Message: "Bad request - API key may be malformed", Err: err}
	case 401:
		return &ValidationError{Type: ErrTypeInvalidKey, Message: "API key is invalid or expired", Err: err}
	case 403:
		return &ValidationError{Type: ErrTypePermissionDenied, Message: "API key lacks permission for the model; check billing", Err: err}
	case 429:
		return &ValidationError{Type: ErrTypeQuotaExceeded, Message: "API rate limit exceeded - try again later", Err: err}
	case 500, 502, 503, 504:
		return &ValidationError{Type: ErrTypeNetworkError, Message: "Gemini API server error - try again later", Err: err}
	}
	log.Error().Int("code", apiErr.Code).Str("message", apiErr.Message).Msg("Google API error")
	return &ValidationError{Type: ErrTypeUnknown, Message: apiErr.Message, Err: err}
}
