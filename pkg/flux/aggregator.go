package flux

import(
	"fmt"
	"time"

	"starphot/pkg/frame"
	"starphot/pkg/track"
)

// A Point is one light-curve sample: summed aperture flux at a
// timestamp, plus the surrounding-annulus flux useful for judging how
// much local background leaked into the aperture.
type Point struct {
	Timestamp time.Time
	Flux      float64
	MaskFlux  float64 // bounding box grown by the margin, minus the aperture flux
}

// A Curve is the time-ordered flux series for one stable aperture,
// with gaps where the aperture went undetected.
type Curve struct {
	ApertureID int
	Points     []Point
}

// Options configures aggregation. Zero values mean "use the default".
type Options struct {
	AnnulusMargin int `yaml:"annulusmargin"` // bounding-box growth for the mask flux, px
}

func DefaultOptions() Options {
	return Options{AnnulusMargin: 5}
}

func (o *Options)fillDefaults() {
	if o.AnnulusMargin <= 0 { o.AnnulusMargin = DefaultOptions().AnnulusMargin }
}

// An Aggregator turns the tracked catalogue plus cleaned frames into
// per-aperture light curves by simple aperture photometry.
type Aggregator struct {
	Opts Options
}

func NewAggregator(opts Options) *Aggregator {
	opts.fillDefaults()
	return &Aggregator{Opts: opts}
}

// Aggregate sums the cleaned flux inside each aperture's mask, for
// every frame the aperture was detected in. Undetected frames
// contribute no point. A mask/frame geometry mismatch is a caller
// bug, not data: it panics.
func (a *Aggregator)Aggregate(cat *track.Catalogue, cleaned []*frame.CleanedFrame) ([]Curve, error) {
	if cat == nil {
		return nil, fmt.Errorf("aggregate: nil catalogue")
	}
	if len(cleaned) != cat.NumFrames {
		return nil, fmt.Errorf("aggregate: %d cleaned frames for a %d-frame catalogue", len(cleaned), cat.NumFrames)
	}

	for fi, cf := range cleaned {
		if cf.Pix.Dx() != cat.Width || cf.Pix.Dy() != cat.Height {
			panic(fmt.Sprintf("aggregate: frame %d is %dx%d but catalogue masks are %dx%d",
				fi, cf.Pix.Dx(), cf.Pix.Dy(), cat.Width, cat.Height))
		}
	}

	curves := make([]Curve, 0, len(cat.Apertures))
	for _, ap := range cat.Apertures {
		curve := Curve{ApertureID: ap.ID}

		for fi := ap.FirstFrame; fi <= ap.LastFrame; fi++ {
			mask, ok := ap.Masks[fi]
			if !ok { continue } // gap: no entry, not a zero

			cf := cleaned[fi]
			sum := 0.0
			x0, y0 := cat.Width, cat.Height
			x1, y1 := 0, 0
			for _, p := range mask {
				sum += cf.Pix.Get(p.X, p.Y)
				if p.X < x0 { x0 = p.X }
				if p.Y < y0 { y0 = p.Y }
				if p.X > x1 { x1 = p.X }
				if p.Y > y1 { y1 = p.Y }
			}

			m := a.Opts.AnnulusMargin
			x0, y0 = maxInt(x0-m, 0), maxInt(y0-m, 0)
			x1, y1 = minInt(x1+m, cat.Width-1), minInt(y1+m, cat.Height-1)
			box := 0.0
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					box += cf.Pix.Get(x, y)
				}
			}

			curve.Points = append(curve.Points, Point{
				Timestamp: cf.Timestamp,
				Flux:      sum,
				MaskFlux:  box - sum,
			})
		}
		curves = append(curves, curve)
	}
	return curves, nil
}

func minInt(a, b int) int { if a < b { return a }; return b }
func maxInt(a, b int) int { if a > b { return a }; return b }
