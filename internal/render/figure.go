// Package render turns computed grids and composites into static figures:
// a title strip over the image and, for scalar products, a colorbar.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jward/spectra/internal/bandmath"
	"github.com/jward/spectra/internal/raster"
)

// DefaultMaxSize bounds the long edge of the plotted image, the pixel size
// of a 10x10 inch figure at 100 dpi.
const DefaultMaxSize = 1000

// Figure layout in pixels.
const (
	margin      = 10
	titleHeight = 30
	barGap      = 12
	barWidth    = 20
	labelWidth  = 64
)

// Options controls figure rendering.
type Options struct {
	Title    string
	Colormap string
	// VMin and VMax override the data range used for color scaling.
	VMin, VMax *float64
	// MaxSize caps the long edge of the image area; 0 means DefaultMaxSize.
	MaxSize int
}

// Scalar renders g through a colormap with a colorbar, like imshow followed
// by colorbar and title. It returns the figure and the value range used.
func Scalar(g *raster.Grid, opts Options) (*image.RGBA, [2]float64, error) {
	cm, err := LookupColormap(opts.Colormap)
	if err != nil {
		return nil, [2]float64{}, err
	}
	if g.Width == 0 || g.Height == 0 {
		return nil, [2]float64{}, fmt.Errorf("render: empty grid")
	}

	st := bandmath.Summarize(g)
	lo, hi := st.Min, st.Max
	if opts.VMin != nil {
		lo = *opts.VMin
	}
	if opts.VMax != nil {
		hi = *opts.VMax
	}

	src := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			src.SetRGBA(x, y, cm.At(scaleValue(g.At(x, y), lo, hi)))
		}
	}

	w, h := fit(g.Width, g.Height, opts.MaxSize)
	fig := newCanvas(margin+w+barGap+barWidth+labelWidth, titleHeight+h+margin)
	area := image.Rect(margin, titleHeight, margin+w, titleHeight+h)
	xdraw.ApproxBiLinear.Scale(fig, area, src, src.Bounds(), draw.Src, nil)

	drawColorbar(fig, cm, area.Max.X+barGap, titleHeight, h, lo, hi)
	drawTitle(fig, opts.Title)
	return fig, [2]float64{lo, hi}, nil
}

// RGB renders a true- or false-color image with a title.
func RGB(src image.Image, opts Options) (*image.RGBA, error) {
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("render: empty image")
	}
	w, h := fit(b.Dx(), b.Dy(), opts.MaxSize)
	fig := newCanvas(margin+w+margin, titleHeight+h+margin)
	area := image.Rect(margin, titleHeight, margin+w, titleHeight+h)
	xdraw.ApproxBiLinear.Scale(fig, area, src, b, draw.Src, nil)
	drawTitle(fig, opts.Title)
	return fig, nil
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("render: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("render: encode %s: %w", path, err)
	}
	return f.Close()
}

func scaleValue(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

// fit scales (w, h) down so the long edge is at most maxSize.
func fit(w, h, maxSize int) (int, int) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	long := max(w, h)
	if long <= maxSize {
		return w, h
	}
	s := float64(maxSize) / float64(long)
	return max(1, int(math.Round(float64(w)*s))), max(1, int(math.Round(float64(h)*s)))
}

func newCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func drawColorbar(dst *image.RGBA, cm *Colormap, x0, y0, h int, lo, hi float64) {
	for y := 0; y < h; y++ {
		t := 1.0
		if h > 1 {
			t = 1 - float64(y)/float64(h-1)
		}
		c := cm.At(t)
		for x := x0; x < x0+barWidth; x++ {
			dst.SetRGBA(x, y0+y, c)
		}
	}

	lx := x0 + barWidth + 4
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	drawText(dst, lx, y0+ascent, formatTick(hi))
	drawText(dst, lx, y0+h/2+ascent/2, formatTick((lo+hi)/2))
	drawText(dst, lx, y0+h, formatTick(lo))
}

func drawTitle(dst *image.RGBA, title string) {
	if title == "" {
		return
	}
	d := &font.Drawer{Face: basicfont.Face7x13}
	tw := d.MeasureString(title).Ceil()
	x := max(margin, (dst.Bounds().Dx()-tw)/2)
	drawText(dst, x, titleHeight-10, title)
}

func drawText(dst *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
