package photom

import(
	"math"

	"gonum.org/v1/gonum/interp"

	"starphot/pkg/frame"
	"starphot/pkg/pgrid"
)

// A glowDistFunc measures how far a pixel is from the profile origin.
// The falloff geometry of the corner artifact isn't pinned down by
// reference material, so it's a pluggable strategy selected by name
// in the options.
type glowDistFunc func(x, y, ox, oy int) float64

func glowDistRadial(x, y, ox, oy int) float64 {
	dx, dy := float64(x-ox), float64(y-oy)
	return math.Sqrt(dx*dx + dy*dy)
}

// glowDistDiagonal projects onto the corner-to-corner diagonal, so
// iso-glow lines run perpendicular to the diagonal instead of being
// circular arcs.
func glowDistDiagonal(x, y, ox, oy int) float64 {
	return (math.Abs(float64(x-ox)) + math.Abs(float64(y-oy))) / math.Sqrt2
}

// estimateGlow models the corner glow as a radial profile measured
// from the corner opposite the glow: robust mode per radial bin,
// piecewise-linear interpolation between bin centers, baseline
// anchored to zero at the start radius so pixels outside the glow
// region are untouched. Returns nil when no glow is detected, which
// makes suppression an exact no-op.
func estimateGlow(g *pgrid.Grid, bad *frame.Mask, glowAt frame.Corner, dist glowDistFunc, opts Options) *pgrid.Grid {
	if glowAt == frame.CornerNone { return nil }

	w, h := g.Dx(), g.Dy()
	ox, oy := glowAt.Opposite().XY(w, h)

	maxDist := 0.0
	for _, c := range []frame.Corner{frame.CornerTopLeft, frame.CornerTopRight, frame.CornerBottomLeft, frame.CornerBottomRight} {
		cx, cy := c.XY(w, h)
		if d := dist(cx, cy, ox, oy); d > maxDist { maxDist = d }
	}

	start := opts.GlowStartFrac * maxDist
	binW := opts.GlowBinWidth
	// keep a usable number of bins on small frames
	if minW := (maxDist - start) / 8.0; binW > minW { binW = minW }
	if binW <= 0 { return nil }

	nBins := int((maxDist-start)/binW) + 1
	binVals := make([][]float64, nBins)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bad.Bad(x, y) { continue }
			d := dist(x, y, ox, oy)
			if d < start { continue }
			b := int((d - start) / binW)
			if b >= nBins { b = nBins - 1 }
			binVals[b] = append(binVals[b], g.Get(x, y))
		}
	}

	centers := []float64{}
	profile := []float64{}
	for b := 0; b < nBins; b++ {
		if len(binVals[b]) == 0 { continue }
		centers = append(centers, start+(float64(b)+0.5)*binW)
		profile = append(profile, tileMode(binVals[b]))
	}
	if len(centers) < 2 { return nil }

	lo, hi := profile[0], profile[0]
	for _, v := range profile {
		if v < lo { lo = v }
		if v > hi { hi = v }
	}
	if hi-lo < opts.GlowThreshold { return nil }

	var pl interp.PiecewiseLinear
	if err := pl.Fit(centers, profile); err != nil { return nil }

	baseline := profile[0]
	glow := pgrid.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := dist(x, y, ox, oy)
			if d < start { continue }
			if d < centers[0] { d = centers[0] }
			if d > centers[len(centers)-1] { d = centers[len(centers)-1] }
			glow.Set(x, y, pl.Predict(d)-baseline)
		}
	}
	return glow
}
