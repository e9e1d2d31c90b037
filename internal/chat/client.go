// Package chat wraps the Gemini SDK calls Redo AI makes: a single-shot
// image edit and a cheap probe used to validate user-supplied keys.
package chat

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/genai"
)

// ErrNoAPIKey is returned when a client is requested without a key.
var ErrNoAPIKey = errors.New("gemini API key is required")

// NewClient creates a Gemini API client for apiKey.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// ContentGenerator is the slice of *genai.Models this package calls.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// truncateString truncates a string to at most maxLen bytes without
// splitting a rune, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
