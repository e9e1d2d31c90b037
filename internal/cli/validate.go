package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/filehandler"
)

// ValidateImagePath checks that path exists, is a regular file and has a
// supported image extension, then returns the absolute path.
func ValidateImagePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("failed to access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if !filehandler.IsImage(filepath.Ext(path)) {
		return "", fmt.Errorf("%s: %w", path, filehandler.ErrNotImage)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// ValidationMessage returns the user-facing text for an API key
// validation failure.
func ValidationMessage(err error) string {
	var validationErr *auth.ValidationError
	if !errors.As(err, &validationErr) {
		return "Unexpected error during API key validation"
	}
	switch validationErr.Type {
	case auth.ErrTypeNoKey:
		return "No API key configured. Set GEMINI_API_KEY or run `redo key set`"
	case auth.ErrTypeInvalidKey:
		return "Invalid API key. Please check your API key and try again"
	case auth.ErrTypePermissionDenied:
		return "API key cannot use the image model. Enable billing for the key's Google Cloud project"
	case auth.ErrTypeNetworkError:
		return "Network error. Please check your internet connection"
	case auth.ErrTypeQuotaExceeded:
		return "API quota exceeded. Please try again later or check your usage limits"
	}
	return "API key validation failed"
}

// HandleValidationError logs the validation failure and exits.
func HandleValidationError(err error) {
	log.Fatal().Err(err).Msg(ValidationMessage(err))
	os.Exit(1)
}
