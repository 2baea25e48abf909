package photom

import(
	"fmt"
	"math"

	"starphot/pkg/frame"
	"starphot/pkg/pgrid"
)

// Options configures background correction. Zero values mean "use the
// default".
type Options struct {
	TileSize      int     `yaml:"tilesize"`      // background tile edge, px
	CropMargin    int     `yaml:"cropmargin"`    // buffer pixels stripped before fitting, zeroed in output; 0 = off
	Iterations    int     `yaml:"iterations"`    // square/radial refinement rounds
	GlowModel     string  `yaml:"glowmodel"`     // "radial", "diagonal" or "off"
	GlowThreshold float64 `yaml:"glowthreshold"` // min profile amplitude to call it glow
	GlowStartFrac float64 `yaml:"glowstartfrac"` // profile start as fraction of max radius
	GlowBinWidth  float64 `yaml:"glowbinwidth"`  // radial bin width, px
}

func DefaultOptions() Options {
	return Options{
		TileSize:      64,
		Iterations:    3,
		GlowModel:     "radial",
		GlowThreshold: 1.0,
		GlowStartFrac: 0.8,
		GlowBinWidth:  15,
	}
}

func (o *Options)fillDefaults() {
	d := DefaultOptions()
	if o.TileSize <= 0      { o.TileSize = d.TileSize }
	if o.Iterations <= 0    { o.Iterations = d.Iterations }
	if o.GlowModel == ""    { o.GlowModel = d.GlowModel }
	if o.GlowThreshold <= 0 { o.GlowThreshold = d.GlowThreshold }
	if o.GlowStartFrac <= 0 { o.GlowStartFrac = d.GlowStartFrac }
	if o.GlowBinWidth <= 0  { o.GlowBinWidth = d.GlowBinWidth }
}

// A Corrector removes the smooth sky background and the corner glow
// artifact from frames. Correct() is a pure function of the input, so
// one Corrector is safe to share across worker goroutines.
type Corrector struct {
	Opts Options
	dist glowDistFunc
}

func NewCorrector(opts Options) (*Corrector, error) {
	opts.fillDefaults()
	c := Corrector{Opts: opts}
	switch opts.GlowModel {
	case "radial":   c.dist = glowDistRadial
	case "diagonal": c.dist = glowDistDiagonal
	case "off":      c.dist = nil
	default:
		return nil, fmt.Errorf("no glow model named '%s'", opts.GlowModel)
	}
	return &c, nil
}

// Correct subtracts the estimated background surface and any detected
// corner glow from the frame. Legitimately awkward inputs (uniform
// frames, frames where the fit degenerates) come back as a copy of
// the input with a diagnostic flag, never as an error.
func (c *Corrector)Correct(f *frame.Frame) (*frame.CleanedFrame, error) {
	if f == nil || f.Pix == nil {
		return nil, fmt.Errorf("correct: frame has no pixels")
	}

	cleaned := frame.CleanedFrame{Meta: f.Meta, Bad: f.Bad}

	// Detectors often carry calibration buffer pixels along the frame
	// edges; strip them before fitting and zero them in the output.
	pix, bad := f.Pix, f.Bad
	m := c.Opts.CropMargin
	cropped := m > 0 && pix.Dx() > 2*m && pix.Dy() > 2*m
	if cropped {
		pix = f.Pix.Crop(m, m, f.Pix.Dx()-2*m, f.Pix.Dy()-2*m)
		bad = f.Bad.Crop(m, m, pix.Dx(), pix.Dy())
	}

	min, max := pix.MinMax()
	if min == max {
		cleaned.Pix = f.Pix.Copy()
		cleaned.Diag.Degenerate = true
		return &cleaned, nil
	}

	glowAt := frame.CornerNone
	if c.dist != nil {
		if corner, err := frame.GlowCorner(f.CCD); err == nil {
			glowAt = corner
		}
	}

	// Alternate the square tile fit and the radial glow fit, each
	// working on the residual left by the other.
	square := estimateTileBackground(pix, bad, c.Opts.TileSize)
	var glow *pgrid.Grid
	for i := 0; i < c.Opts.Iterations; i++ {
		if c.dist != nil {
			resid := pix.Copy()
			resid.Sub(square)
			glow = estimateGlow(resid, bad, glowAt, c.dist, c.Opts)
		}
		if glow == nil {
			break // nothing radial to refine against
		}
		resid := pix.Copy()
		resid.Sub(glow)
		square = estimateTileBackground(resid, bad, c.Opts.TileSize)
	}

	out := pix.Copy()
	out.Sub(square)
	if glow != nil {
		out.Sub(glow)
		cleaned.Diag.GlowCorrected = true
	}

	// Bad pixels keep their input values; they were excluded from the
	// fits and stay flagged for downstream stages.
	if bad != nil {
		for y := 0; y < out.Dy(); y++ {
			for x := 0; x < out.Dx(); x++ {
				if bad.Bad(x, y) {
					out.Set(x, y, pix.Get(x, y))
				}
			}
		}
	}

	for _, v := range out.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			cleaned.Pix = f.Pix.Copy()
			cleaned.Diag.FitFailed = true
			return &cleaned, nil
		}
	}

	if cropped {
		full := f.Pix.NewFromThis() // buffer margin stays zero
		full.Paste(m, m, out)
		out = full
	}
	cleaned.Pix = out
	return &cleaned, nil
}
