package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ErrNoImage is returned when the model answered without an image part.
var ErrNoImage = errors.New("no image data found")

// BlockedError is returned when the model refused the request on safety
// grounds, either for the prompt or for the produced image.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "content blocked: " + e.Reason
}

// blockingFinishReasons are finish reasons that mean the output was withheld
// by a safety filter rather than simply missing.
var blockingFinishReasons = map[genai.FinishReason]bool{
	"SAFETY":                   true,
	"PROHIBITED_CONTENT":       true,
	"BLOCKLIST":                true,
	"SPII":                     true,
	"IMAGE_SAFETY":             true,
	"IMAGE_PROHIBITED_CONTENT": true,
}

// EditRequest is one image edit.
type EditRequest struct {
	Image    []byte
	MIMEType string
	Prompt   string
}

// EditResult holds the edited image and any text the model returned.
type EditResult struct {
	ImageData     []byte
	ImageMIMEType string
	Text          string
}

// ImageEditor performs single-shot image edits with one API key.
type ImageEditor struct {
	models ContentGenerator
	model  string
}

// NewImageEditor returns an editor that calls model through client.
func NewImageEditor(client *genai.Client, model string) *ImageEditor {
	return NewImageEditorWith(client.Models, model)
}

// NewImageEditorWith builds an editor on any ContentGenerator.
func NewImageEditorWith(models ContentGenerator, model string) *ImageEditor {
	if model == "" {
		model = DefaultImageModel
	}
	return &ImageEditor{models: models, model: model}
}

// Model returns the model ID the editor calls.
func (e *ImageEditor) Model() string { return e.model }

// Edit sends the photo and instructions and returns the first inline image
// of the response. No retries are attempted.
func (e *ImageEditor) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	startTime := time.Now()
	log.Info().
		Str("model", e.model).
		Int("image_bytes", len(req.Image)).
		Str("image_mime", req.MIMEType).
		Int("prompt_length", len(req.Prompt)).
		Msg("Sending image to Gemini for editing")

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: req.MIMEType, Data: req.Image}},
			{Text: req.Prompt},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := e.models.GenerateContent(ctx, e.model, contents, config)
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(startTime)).Msg("Gemini image edit failed")
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	result, err := extractImage(resp)
	if err != nil {
		log.Warn().Err(err).Dur("duration", time.Since(startTime)).Msg("Gemini returned no usable image")
		return nil, err
	}

	log.Info().
		Int("output_bytes", len(result.ImageData)).
		Str("output_mime", result.ImageMIMEType).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image editing complete")

	return result, nil
}

func extractImage(resp *genai.GenerateContentResponse) (*EditResult, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrNoImage)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, &BlockedError{Reason: string(fb.BlockReason)}
	}

	result := &EditResult{}
	var text strings.Builder
	var finish genai.FinishReason
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		if finish == "" {
			finish = candidate.FinishReason
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && result.ImageData == nil && len(part.InlineData.Data) > 0 {
				result.ImageData = part.InlineData.Data
				result.ImageMIMEType = part.InlineData.MIMEType
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	result.Text = text.String()

	if result.ImageData != nil {
		if result.ImageMIMEType == "" {
			result.ImageMIMEType = "image/png"
		}
		return result, nil
	}
	if blockingFinishReasons[finish] {
		return nil, &BlockedError{Reason: string(finish)}
	}
	if result.Text != "" {
		return nil, fmt.Errorf("%w (text: %s)", ErrNoImage, truncateString(result.Text, 200))
	}
	return nil, ErrNoImage
}

// Probe makes the smallest possible call to check that a key works.
func Probe(ctx context.Context, models ContentGenerator) error {
	resp, err := models.GenerateContent(ctx, ModelGemini25FlashLite, genai.Text("hi"), nil)
	if err != nil {
		return err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return errors.New("API returned empty response")
	}
	return nil
}
