// Package composite renders the branded side-by-side before/after image
// offered for download and sharing, and the clipped reveal used by the
// comparison slider.
package composite

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxHeight caps the height of each panel.
	MaxHeight = 2048
	// DefaultTimeout bounds how long loading both sources may take.
	DefaultTimeout = 30 * time.Second
	// JPEGQuality is the encoder quality for artifacts.
	JPEGQuality = 90
	// Filename is the fixed download name of an artifact.
	Filename = "redo-ai-before-after.jpg"
	// DefaultFooter is the branding line drawn along the bottom edge.
	DefaultFooter = "Made with Redo AI"

	// maxPixels guards the canvas allocation.
	maxPixels = 64 << 20
)

var (
	// ErrTimeout is returned when the sources did not load in time. No
	// partial artifact is produced.
	ErrTimeout = errors.New("timed out loading images")
	// ErrCanvas is returned when the output canvas cannot be allocated.
	ErrCanvas = errors.New("could not allocate canvas")
)

// Side names which input of a comparison an error refers to.
const (
	SideOriginal  = "original"
	SideGenerated = "generated"
)

// LoadError reports which side failed to load.
type LoadError struct {
	Side string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s image: %v", e.Side, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Artifact is an encoded composite.
type Artifact struct {
	Data   []byte
	Width  int
	Height int
}

// MIMEType of every artifact.
func (a *Artifact) MIMEType() string { return "image/jpeg" }

// DataURL returns the artifact as a base64 data: URL.
func (a *Artifact) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Options configures a Renderer. Zero fields take defaults.
type Options struct {
	Loader    Loader
	Timeout   time.Duration
	MaxHeight int
	Footer    string
}

// Renderer produces composites. It is safe for concurrent use.
type Renderer struct {
	loader    Loader
	timeout   time.Duration
	maxHeight int
	footer    string
}

// NewRenderer returns a Renderer with defaults applied.
func NewRenderer(opts Options) *Renderer {
	r := &Renderer{
		loader:    opts.Loader,
		timeout:   opts.Timeout,
		maxHeight: opts.MaxHeight,
		footer:    opts.Footer,
	}
	if r.loader == nil {
		r.loader = HTTPLoader{}
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.maxHeight <= 0 {
		r.maxHeight = MaxHeight
	}
	if r.footer == "" {
		r.footer = DefaultFooter
	}
	return r
}

// PanelSize returns the size both panels are stretched to, derived from the
// first image's aspect ratio with the height capped at maxHeight.
func PanelSize(width, height, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	h := min(height, maxHeight)
	w := int(math.Round(float64(h) * float64(width) / float64(height)))
	return max(w, 1), h
}

// DividerWidth is the gap between the two panels, scaled with their height.
func DividerWidth(panelHeight int) int {
	return max(4, panelHeight/256)
}

// Render loads both sources concurrently and draws the composite.
func (r *Renderer) Render(ctx context.Context, original, generated Source) (*Artifact, error) {
	start := time.Now()

	before, after, err := r.loadPair(ctx, original, generated)
	if err != nil {
		return nil, err
	}

	canvas, err := r.Draw(before, after)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}

	b := canvas.Bounds()
	log.Debug().
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Int("bytes", buf.Len()).
		Dur("duration", time.Since(start)).
		Msg("Composite rendered")

	return &Artifact{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

type loaded struct {
	before image.Image
	after  image.Image
	err    error
}

func (r *Renderer) loadPair(ctx context.Context, original, generated Source) (image.Image, image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan loaded, 1)
	go func() {
		var res loaded
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			img, err := r.loadSide(gctx, SideOriginal, original)
			res.before = img
			return err
		})
		g.Go(func() error {
			img, err := r.loadSide(gctx, SideGenerated, generated)
			res.after = img
			return err
		})
		res.err = g.Wait()
		done <- res
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, nil, ErrTimeout
			}
			return nil, nil, res.err
		}
		return res.before, res.after, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, ErrTimeout
		}
		return nil, nil, ctx.Err()
	}
}

func (r *Renderer) loadSide(ctx context.Context, side string, src Source) (image.Image, error) {
	if src.empty() {
		return nil, &LoadError{Side: side, Err: errors.New("no image provided")}
	}
	img, err := r.loader.Load(ctx, src)
	if err != nil {
		return nil, &LoadError{Side: side, Err: err}
	}
	if img == nil {
		return nil, &LoadError{Side: side, Err: errors.New("loader returned no image")}
	}
	return img, nil
}
