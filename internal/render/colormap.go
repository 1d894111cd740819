package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultColormap is used when a scalar product names no colormap.
const DefaultColormap = "viridis"

// stop is a color anchored at a position on [0, 1].
type stop struct {
	pos float64
	c   colorful.Color
}

// Colormap maps normalized scalars on [0, 1] to colors by linear
// interpolation between anchored stops.
type Colormap struct {
	Name  string
	stops []stop
}

func evenStops(hexes ...string) []stop {
	stops := make([]stop, len(hexes))
	for i, h := range hexes {
		stops[i] = stop{pos: float64(i) / float64(len(hexes)-1), c: colorful.MustParseHex(h)}
	}
	return stops
}

var colormaps = map[string]*Colormap{
	"viridis": {Name: "viridis", stops: evenStops(
		"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
	)},
	"RdYlGn": {Name: "RdYlGn", stops: evenStops(
		"#a50026", "#d73027", "#f46d43", "#fdae61", "#fee08b", "#ffffbf",
		"#d9ef8b", "#a6d96a", "#66bd63", "#1a9850", "#006837",
	)},
	"hot": {Name: "hot", stops: []stop{
		{0, colorful.MustParseHex("#0b0000")},
		{0.365, colorful.MustParseHex("#ff0000")},
		{0.746, colorful.MustParseHex("#ffff00")},
		{1, colorful.MustParseHex("#ffffff")},
	}},
	"gray": {Name: "gray", stops: evenStops("#000000", "#ffffff")},
}

// LookupColormap returns the named colormap.
func LookupColormap(name string) (*Colormap, error) {
	if name == "" {
		name = DefaultColormap
	}
	cm, ok := colormaps[name]
	if !ok {
		return nil, fmt.Errorf("render: unknown colormap %q (known: %v)", name, ColormapNames())
	}
	return cm, nil
}

// ColormapNames lists the registered colormaps in sorted order.
func ColormapNames() []string {
	names := make([]string, 0, len(colormaps))
	for n := range colormaps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// At returns the color for t. t is clamped to [0, 1]; NaN maps to white.
func (cm *Colormap) At(t float64) color.RGBA {
	if math.IsNaN(t) {
		return color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
	t = math.Max(0, math.Min(1, t))

	i := sort.Search(len(cm.stops), func(i int) bool { return cm.stops[i].pos >= t })
	var c colorful.Color
	switch {
	case i == 0:
		c = cm.stops[0].c
	case i >= len(cm.stops):
		c = cm.stops[len(cm.stops)-1].c
	default:
		lo, hi := cm.stops[i-1], cm.stops[i]
		c = lo.c.BlendRgb(hi.c, (t-lo.pos)/(hi.pos-lo.pos))
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{r, g, b, 0xff}
}
