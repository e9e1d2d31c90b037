package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/chat"
)

// InitImageEditor creates a Gemini client from the locally configured key,
// validates the key, and returns an editor for model. Exits fatally on
// failure.
func InitImageEditor(ctx context.Context, model string) (string, *chat.ImageEditor) {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to retrieve API key")
	}

	client, err := chat.NewClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}

	log.Info().Msg("connection successful - Gemini client initialized")

	if err := auth.ValidateAPIKey(ctx, client.Models); err != nil {
		HandleValidationError(err)
	}

	log.Info().Str("model", model).Msg("API key validation complete - ready for operations")

	return apiKey, chat.NewImageEditor(client, model)
}
