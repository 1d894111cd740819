package bandmath

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/jward/spectra/internal/raster"
)

// Composite is an 8-bit RGB image assembled from three bands.
type Composite struct {
	img *image.RGBA
}

// NewComposite stacks r, g and b into the red, green and blue display
// channels. Inputs are expected on 0..255 (see Normalize); values outside
// are clamped and NaN becomes 0.
func NewComposite(r, g, b *raster.Grid) (*Composite, error) {
	if err := raster.CheckShapes(r, g, b); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			i := y*r.Width + x
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(r.Data[i]),
				G: toByte(g.Data[i]),
				B: toByte(b.Data[i]),
				A: 0xff,
			})
		}
	}
	return &Composite{img: img}, nil
}

// Image returns the composite as an RGBA image.
func (c *Composite) Image() *image.RGBA {
	return c.img
}

// Width returns the composite width in pixels.
func (c *Composite) Width() int {
	return c.img.Bounds().Dx()
}

// Height returns the composite height in pixels.
func (c *Composite) Height() int {
	return c.img.Bounds().Dy()
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(clamp(v, 0, 255))
}
