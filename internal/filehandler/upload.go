package filehandler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// MaxUploadBytes is the largest photo accepted.
const MaxUploadBytes = 20 << 20

var (
	// ErrNotImage is returned for files that are not a supported image.
	ErrNotImage = errors.New("file is not a supported image")
	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("image exceeds upload limit")
	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("image is empty")
)

// Upload is a validated photo held in memory.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
	// Width and Height are zero for formats the standard decoders cannot
	// read (HEIC/HEIF).
	Width    int
	Height   int
	Metadata *ImageMetadata
}

// Base64 returns the raw base64 encoding of the image bytes.
func (u *Upload) Base64() string {
	return base64.StdEncoding.EncodeToString(u.Data)
}

// DataURL returns the image as a data: URL.
func (u *Upload) DataURL() string {
	return EncodeDataURL(u.MIMEType, u.Data)
}

// ReadUpload validates and reads an uploaded image. The content is sniffed;
// the file name only breaks ties for formats the sniffer does not know.
func ReadUpload(name string, r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return NewUpload(name, data)
}

// ReadFile reads and validates an image from disk.
func ReadFile(path string) (*Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ReadUpload(filepath.Base(path), f)
}

// NewUpload validates in-memory image bytes.
func NewUpload(name string, data []byte) (*Upload, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	mimeType, err := detectMIME(name, data)
	if err != nil {
		return nil, err
	}

	u := &Upload{Name: name, MIMEType: mimeType, Data: data}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		u.Width, u.Height = cfg.Width, cfg.Height
	} else if mimeType != "image/heic" && mimeType != "image/heif" {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	if meta, err := ExtractImageMetadata(data); err != nil {
		log.Debug().Err(err).Str("name", name).Msg("No EXIF metadata, continuing without it")
	} else {
		u.Metadata = meta
	}

	log.Info().
		Str("name", name).
		Str("mime_type", mimeType).
		Int("size_bytes", len(data)).
		Int("width", u.Width).
		Int("height", u.Height).
		Msg("Upload accepted")

	return u, nil
}

func detectMIME(name string, data []byte) (string, error) {
	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if IsImageMIME(sniffed) {
		return sniffed, nil
	}
	if strings.HasPrefix(sniffed, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, sniffed)
	}

	// HEIC has no sniffing signature; trust the extension plus the ftyp box.
	if m, err := GetMIMEType(filepath.Ext(name)); err == nil && (m == "image/heic" || m == "image/heif") && isHEIF(data) {
		return m, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotImage, sniffed)
}

// isHEIF checks for an ISO-BMFF ftyp box at the start of the file.
func isHEIF(data []byte) bool {
	return len(data) >= 12 && string(data[4:8]) == "ftyp"
}

// DecodeBase64Image accepts either a data: URL or raw base64 and returns
// the MIME type (sniffed when not declared) and decoded bytes.
func DecodeBase64Image(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	mimeType := ""
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return "", nil, fmt.Errorf("malformed data URL")
		}
		if !strings.HasSuffix(header, ";base64") {
			return "", nil, fmt.Errorf("data URL is not base64 encoded")
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	if len(data) == 0 {
		return "", nil, ErrEmpty
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
	}
	return mimeType, data, nil
}

// EncodeDataURL returns data as a base64 data: URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
