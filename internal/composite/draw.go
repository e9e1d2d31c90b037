package composite

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	// Background fills the canvas before anything else is drawn (#0f172a).
	Background   = color.NRGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}
	dividerColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xcc}
	labelColor   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	shadowColor  = color.NRGBA{A: 0xb3}
)

const (
	// bandFraction is the share of the panel height covered by each
	// legibility gradient.
	bandFraction = 0.15
	bandMaxAlpha = 0.6
)

var (
	boldOnce sync.Once
	boldFont *opentype.Font
	boldErr  error
)

func loadBold() (*opentype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, boldErr
}

// LabelSize is the BEFORE/AFTER font size for a panel of the given width.
func LabelSize(panelWidth int) float64 {
	return math.Max(float64(panelWidth)*0.04, 24)
}

// FooterSize is the branding font size for a panel of the given width.
func FooterSize(panelWidth int) float64 {
	return math.Max(float64(panelWidth)*0.025, 16)
}

// Draw composes before and after into an unencoded canvas. Inputs are not
// modified.
func (r *Renderer) Draw(before, after image.Image) (*image.RGBA, error) {
	fb := before.Bounds()
	w, h := PanelSize(fb.Dx(), fb.Dy(), r.maxHeight)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty original image", ErrCanvas)
	}
	gap := DividerWidth(h)
	cw := 2*w + gap
	if int64(cw)*int64(h) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds limit", ErrCanvas, cw, h)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, cw, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	left := image.Rect(0, 0, w, h)
	right := image.Rect(w+gap, 0, cw, h)
	draw.Draw(canvas, left, imaging.Resize(before, w, h, imaging.Lanczos), image.Point{}, draw.Over)
	draw.Draw(canvas, right, imaging.Resize(after, w, h, imaging.Lanczos), image.Point{}, draw.Over)
	draw.Draw(canvas, image.Rect(w, 0, w+gap, h), image.NewUniform(dividerColor), image.Point{}, draw.Over)

	drawBands(canvas, int(float64(h)*bandFraction))

	if err := r.drawText(canvas, w, gap); err != nil {
		return nil, err
	}
	return canvas, nil
}

// drawBands darkens the top and bottom edges, fading toward the middle.
func drawBands(canvas *image.RGBA, band int) {
	b := canvas.Bounds()
	if band <= 0 {
		return
	}
	for i := 0; i < band; i++ {
		a := uint8(255 * bandMaxAlpha * float64(band-i) / float64(band))
		shade := image.NewUniform(color.NRGBA{A: a})
		draw.Draw(canvas, image.Rect(b.Min.X, i, b.Max.X, i+1), shade, image.Point{}, draw.Over)
		y := b.Max.Y - 1 - i
		draw.Draw(canvas, image.Rect(b.Min.X, y, b.Max.X, y+1), shade, image.Point{}, draw.Over)
	}
}

func (r *Renderer) drawText(canvas *image.RGBA, panelWidth, gap int) error {
	f, err := loadBold()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}

	labelFace, err := opentype.NewFace(f, &opentype.FaceOptions{Size: LabelSize(panelWidth), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("label face: %w", err)
	}
	defer labelFace.Close()

	footerFace, err := opentype.NewFace(f, &opentype.FaceOptions{Size: FooterSize(panelWidth), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("footer face: %w", err)
	}
	defer footerFace.Close()

	margin := int(LabelSize(panelWidth))
	baseline := margin + labelFace.Metrics().Ascent.Ceil()
	shadow := max(2, margin/12)

	drawShadowed(canvas, labelFace, "BEFORE", margin, baseline, shadow)
	drawShadowed(canvas, labelFace, "AFTER", panelWidth+gap+margin, baseline, shadow)

	h := canvas.Bounds().Dy()
	fw := font.MeasureString(footerFace, r.footer).Ceil()
	fx := (canvas.Bounds().Dx() - fw) / 2
	fy := h - int(FooterSize(panelWidth))
	drawShadowed(canvas, footerFace, r.footer, fx, fy, max(1, shadow/2))
	return nil
}

func drawShadowed(dst *image.RGBA, face font.Face, s string, x, y, offset int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(shadowColor), Face: face, Dot: fixed.P(x+offset, y+offset)}
	d.DrawString(s)
	d.Src = image.NewUniform(labelColor)
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}
