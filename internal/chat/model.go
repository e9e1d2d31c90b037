package chat

import "os"

// Gemini image model IDs
//
// | Model Name                 | API Model ID               | Use Case                     |
// |----------------------------|----------------------------|------------------------------|
// | Gemini 2.5 Flash Image     | gemini-2.5-flash-image     | Fast image editing (default) |
// | Gemini 3 Pro Image         | gemini-3-pro-image-preview | Highest quality image edits  |
const (
	// ModelGemini25FlashImage is the stable, fast image editing model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelGemini25FlashLite is the cheapest text model, used to probe keys.
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"
)

// DefaultImageModel is the image model used when none is configured.
const DefaultImageModel = ModelGemini25FlashImage

// GetImageModel returns the image model to use, resolved from:
// 1. REDO_IMAGE_MODEL environment variable (if set)
// 2. Default: gemini-2.5-flash-image
func GetImageModel() string {
	if env := os.Getenv("REDO_IMAGE_MODEL"); env != "" {
		return env
	}
	return DefaultImageModel
}
