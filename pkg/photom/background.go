package photom

import(
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"starphot/pkg/frame"
	"starphot/pkg/pgrid"
)

// tileMode is the robust central-value estimate used for every
// background sample in the pipeline. It 3-sigma clips around the
// median, then uses the classic mode approximation
// 2.5*median - 1.5*mean when the clipped tile is quiet enough,
// falling back to the plain median otherwise. Bright stars inside the
// tile end up in the clipped tail and don't drag the estimate.
func tileMode(vals []float64) float64 {
	if len(vals) == 0 { return 0 }
	if len(vals) < 3  { return pgrid.Median(vals) }

	med := pgrid.Median(vals)
	sd := stat.StdDev(vals, nil)

	clipped := make([]float64, 0, len(vals))
	for _, v := range vals {
		if math.Abs(v - med) < 3*sd {
			clipped = append(clipped, v)
		}
	}

	if len(clipped) >= 3 {
		cmed := pgrid.Median(clipped)
		cmean := stat.Mean(clipped, nil)
		csd := stat.StdDev(clipped, nil)
		if csd < 0.3*math.Abs(cmed) {
			return 2.5*cmed - 1.5*cmean
		}
	}
	return med
}

// estimateTileBackground models the smooth sky surface: a robust mode
// per tile, a 3x3 median filter across the tile grid to kill outlier
// tiles, then a smooth separable interpolation back up to full
// resolution through the tile centers.
func estimateTileBackground(g *pgrid.Grid, bad *frame.Mask, tileSize int) *pgrid.Grid {
	w, h := g.Dx(), g.Dy()
	nx := (w + tileSize - 1) / tileSize
	ny := (h + tileSize - 1) / tileSize

	modes := pgrid.New(nx, ny)
	xc := make([]float64, nx)
	yc := make([]float64, ny)

	vals := make([]float64, 0, tileSize*tileSize)
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			x0, y0 := tx*tileSize, ty*tileSize
			x1, y1 := x0+tileSize, y0+tileSize
			if x1 > w { x1 = w }
			if y1 > h { y1 = h }

			vals = vals[:0]
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					if !bad.Bad(x, y) {
						vals = append(vals, g.Get(x, y))
					}
				}
			}
			modes.Set(tx, ty, tileMode(vals))

			if ty == 0 { xc[tx] = float64(x0+x1-1) / 2.0 }
			if tx == 0 { yc[ty] = float64(y0+y1-1) / 2.0 }
		}
	}

	modes = modes.MedianFilter3()

	// Separable upsample: rows first into an intermediate w x ny grid,
	// then columns.
	mid := pgrid.New(w, ny)
	row := make([]float64, nx)
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ { row[tx] = modes.Get(tx, ty) }
		full := fitPredict(xc, row, w)
		for x := 0; x < w; x++ { mid.Set(x, ty, full[x]) }
	}

	bg := pgrid.New(w, h)
	col := make([]float64, ny)
	for x := 0; x < w; x++ {
		for ty := 0; ty < ny; ty++ { col[ty] = mid.Get(x, ty) }
		full := fitPredict(yc, col, h)
		for y := 0; y < h; y++ { bg.Set(x, y, full[y]) }
	}

	return bg
}

// fitPredict interpolates the (xs, ys) samples onto integer
// coordinates 0..n-1. Akima when there are enough samples for it to
// behave, piecewise linear below that, constant for a single sample.
// Queries outside the sample range clamp to the nearest sample.
func fitPredict(xs, ys []float64, n int) []float64 {
	out := make([]float64, n)

	if len(xs) == 1 {
		for i := range out { out[i] = ys[0] }
		return out
	}

	var pred interp.Predictor
	if len(xs) >= 5 {
		var ak interp.AkimaSpline
		if err := ak.Fit(xs, ys); err == nil {
			pred = &ak
		}
	}
	if pred == nil {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			for i := range out { out[i] = ys[0] }
			return out
		}
		pred = &pl
	}

	lo, hi := xs[0], xs[len(xs)-1]
	for i := 0; i < n; i++ {
		x := float64(i)
		if x < lo { x = lo }
		if x > hi { x = hi }
		out[i] = pred.Predict(x)
	}
	return out
}
