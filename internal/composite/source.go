package composite

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/fpang/redo-ai/internal/filehandler"
)

// MaxSourceBytes caps how much of a remote image is read.
const MaxSourceBytes = 50 << 20

// Source is one side of a comparison. Exactly one field is expected to be
// set; Image takes precedence, then Data, then URL.
type Source struct {
	// URL is a remote http(s) URL or a data: URL.
	URL string
	// Data is an encoded image (JPEG, PNG, GIF or WebP).
	Data []byte
	// Image is an already decoded image. Loading it completes immediately.
	Image image.Image
}

// FromURL returns a Source for a remote or data: URL.
func FromURL(u string) Source { return Source{URL: u} }

// FromBytes returns a Source for encoded image bytes.
func FromBytes(b []byte) Source { return Source{Data: b} }

// FromImage returns a Source for a decoded image.
func FromImage(img image.Image) Source { return Source{Image: img} }

func (s Source) empty() bool {
	return s.Image == nil && len(s.Data) == 0 && s.URL == ""
}

// Loader turns a Source into a decoded image. Implementations must return
// promptly once ctx is done.
type Loader interface {
	Load(ctx context.Context, src Source) (image.Image, error)
}

// HTTPLoader loads sources from memory, data: URLs, or over HTTP.
type HTTPLoader struct {
	Client *http.Client
}

// Load implements Loader.
func (l HTTPLoader) Load(ctx context.Context, src Source) (image.Image, error) {
	switch {
	case src.Image != nil:
		return src.Image, nil
	case len(src.Data) > 0:
		return decode(src.Data)
	case strings.HasPrefix(src.URL, "data:"):
		_, data, err := filehandler.DecodeBase64Image(src.URL)
		if err != nil {
			return nil, err
		}
		return decode(data)
	case src.URL != "":
		return l.fetch(ctx, src.URL)
	}
	return nil, fmt.Errorf("empty source")
}

func (l HTTPLoader) fetch(ctx context.Context, url string) (image.Image, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return decode(data)
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
