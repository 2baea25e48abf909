package track

import(
	"fmt"
	"image"
)

// An Aperture is one star-like source with an identity that stays
// stable across the whole frame series. Pixel membership may shift
// slightly frame to frame; the masks per detected frame are kept so
// photometry uses the shape the source actually had at that time.
type Aperture struct {
	ID         int
	CentroidX  float64
	CentroidY  float64
	PixelCount int
	FirstFrame int
	LastFrame  int

	// Masks holds the pixel set per frame index the aperture was
	// detected in. Frames missing from the map are gaps.
	Masks map[int][]image.Point

	missed int  // consecutive frames without a match
	active bool // still eligible for matching
}

func (a *Aperture)String() string {
	return fmt.Sprintf("aperture %d [%.1f,%.1f] %dpx frames %d-%d",
		a.ID, a.CentroidX, a.CentroidY, a.PixelCount, a.FirstFrame, a.LastFrame)
}

// DetectedIn reports whether the aperture has a mask for the frame.
func (a *Aperture)DetectedIn(frameIdx int) bool {
	_, ok := a.Masks[frameIdx]
	return ok
}

func (a *Aperture)updateFrom(frameIdx int, pixels []image.Point) {
	mask := make([]image.Point, len(pixels))
	copy(mask, pixels)
	a.Masks[frameIdx] = mask
	a.LastFrame = frameIdx
	a.PixelCount = len(pixels)
	a.missed = 0

	sx, sy := 0.0, 0.0
	for _, p := range pixels {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	a.CentroidX = sx / float64(len(pixels))
	a.CentroidY = sy / float64(len(pixels))
}

// A Catalogue is the durable output of tracking: every aperture ever
// seen in the series (including retired ones), ordered by ID, plus
// the series geometry the flux stage needs.
type Catalogue struct {
	Apertures []*Aperture
	NumFrames int
	Width     int
	Height    int
}
