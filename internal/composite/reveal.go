package composite

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Reveal renders one frame of the comparison slider: after fills the frame
// and before shows through the columns [0, pct% of width). pct is clamped
// to [0, 100]. A before image of a different size is stretched to match.
func Reveal(before, after image.Image, pct float64) *image.RGBA {
	ab := after.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, ab.Dx(), ab.Dy()))
	draw.Draw(out, out.Bounds(), after, ab.Min, draw.Src)

	pct = math.Min(math.Max(pct, 0), 100)
	edge := int(math.Round(float64(ab.Dx()) * pct / 100))
	if edge == 0 {
		return out
	}

	src := before
	if bb := before.Bounds(); bb.Dx() != ab.Dx() || bb.Dy() != ab.Dy() {
		src = imaging.Resize(before, ab.Dx(), ab.Dy(), imaging.Lanczos)
	}
	draw.Draw(out, image.Rect(0, 0, edge, ab.Dy()), src, src.Bounds().Min, draw.Src)
	return out
}
