// Package filehandler validates user photo uploads and extracts what the
// editor needs from them: MIME type, pixel dimensions and EXIF metadata.
//
// Uploads are read fully into memory. Non-images are rejected up front,
// before any network call is made.
package filehandler

import (
	"fmt"
	"strings"
)

// SupportedImageExtensions maps accepted file extensions to MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// IsImage returns true if the file extension corresponds to an image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// IsImageMIME reports whether mimeType is one of the accepted image types.
func IsImageMIME(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, m := range SupportedImageExtensions {
		if m == mimeType {
			return true
		}
	}
	return false
}

// preferredExtensions picks one extension per MIME type.
var preferredExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

// ExtensionFor returns the file extension to save mimeType under, or ".bin".
func ExtensionFor(mimeType string) string {
	if ext, ok := preferredExtensions[strings.ToLower(strings.TrimSpace(mimeType))]; ok {
		return ext
	}
	return ".bin"
}
