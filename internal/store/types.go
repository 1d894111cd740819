package store

import "time"

// Product kinds.
const (
	KindScalar = "scalar"
	KindRGB    = "rgb"
)

type Scene struct {
	ID           int64
	Path         string
	Name         string
	Width        int
	Height       int
	Projection   string
	GeoTransform [6]float64
	IndexedAt    time.Time
}

type Band struct {
	ID         int64
	SceneID    int64
	Role       string
	BandNumber int
	Path       string
	Hash       string
	Width      int
	Height     int
	DataType   string
	NoData     *float64
	Min        float64
	Max        float64
	Mean       float64
	StdDev     float64
	IndexedAt  time.Time
}

type Product struct {
	ID         int64
	SceneID    int64
	Name       string
	Kind       string
	Title      string
	Colormap   string
	PNGPath    string
	TIFPath    string
	InputsHash string
	Min        float64
	Max        float64
	Mean       float64
	StdDev     float64
	RenderedAt time.Time
}
