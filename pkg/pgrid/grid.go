package pgrid

import(
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// A Grid is a 2D grid of float64 flux values, stored row-major in a
// single flat slice. It is the pixel currency for the whole pipeline:
// raw frames, cleaned frames and background surfaces are all Grids.
type Grid struct {
	stride int
	values []float64
}

func New(w, h int) *Grid {
	return &Grid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g1 *Grid)NewFromThis() *Grid        { return New(g1.Dx(), g1.Dy()) }
func (g *Grid)Set(x, y int, v float64)    { g.values[g.stride*y + x] = v }
func (g *Grid)Get(x, y int) float64       { return g.values[g.stride*y + x] }
func (g *Grid)Dx() int                    { return g.stride }
func (g *Grid)Dy() int                    { return len(g.values) / g.stride }
func (g *Grid)NumPixels() int             { return len(g.values) }
func (g *Grid)Values() []float64          { return g.values }
func (g *Grid)InBounds(x, y int) bool     { return x >= 0 && y >= 0 && x < g.Dx() && y < g.Dy() }

// FromValues wraps an existing row-major slice without copying. The
// slice length must be a multiple of the stride.
func FromValues(w int, values []float64) (*Grid, error) {
	if w <= 0 || len(values) == 0 || len(values) % w != 0 {
		return nil, fmt.Errorf("pgrid: %d values don't tile a width-%d grid", len(values), w)
	}
	return &Grid{stride: w, values: values}, nil
}

func (g1 *Grid)Copy() *Grid {
	g2 := Grid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// Crop copies out the w x h region whose top-left corner is (x0, y0).
func (g1 *Grid)Crop(x0, y0, w, h int) *Grid {
	g2 := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g2.Set(x, y, g1.Get(x0+x, y0+y))
		}
	}
	return g2
}

// Paste copies g2 into g1 with its top-left corner at (x0, y0).
func (g1 *Grid)Paste(x0, y0 int, g2 *Grid) {
	for y := 0; y < g2.Dy(); y++ {
		for x := 0; x < g2.Dx(); x++ {
			g1.Set(x0+x, y0+y, g2.Get(x, y))
		}
	}
}

func (g *Grid)Fill(v float64) {
	for i := range g.values {
		g.values[i] = v
	}
}

// Sub subtracts g2 from g1 in place.
func (g1 *Grid)Sub(g2 *Grid) {
	for i := range g1.values {
		g1.values[i] -= g2.values[i]
	}
}

// Add adds g2 to g1 in place.
func (g1 *Grid)Add(g2 *Grid) {
	for i := range g1.values {
		g1.values[i] += g2.values[i]
	}
}

func (g *Grid)MinMax() (float64, float64) {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for _, v := range g.values {
		if v < min { min = v }
		if v > max { max = v }
	}
	return min, max
}

func (g *Grid)Stats() string {
	min, max := g.MinMax()
	return fmt.Sprintf("grid[%dx%d, vals{%f,%f}, mean %f]",
		g.Dx(), g.Dy(), min, max, stat.Mean(g.values, nil))
}

// MedianFilter3 returns a copy of the grid where each value is
// replaced by the median of its 3x3 neighborhood (truncated at the
// edges). Used to knock outlier tiles out of background mode grids.
func (g1 *Grid)MedianFilter3() *Grid {
	g2 := g1.NewFromThis()
	neigh := make([]float64, 0, 9)

	for y := 0; y < g1.Dy(); y++ {
		for x := 0; x < g1.Dx(); x++ {
			neigh = neigh[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if g1.InBounds(x+dx, y+dy) {
						neigh = append(neigh, g1.Get(x+dx, y+dy))
					}
				}
			}
			g2.Set(x, y, Median(neigh))
		}
	}
	return g2
}

// Median copies and sorts, so callers can pass live pixel data.
func Median(vals []float64) float64 {
	if len(vals) == 0 { return 0 }
	tmp := make([]float64, len(vals))
	copy(tmp, vals)
	sort.Float64s(tmp)
	return stat.Quantile(0.5, stat.Empirical, tmp, nil)
}

// MAD is the median absolute deviation from the median, the robust
// scale estimate used for noise floors.
func MAD(vals []float64) float64 {
	if len(vals) == 0 { return 0 }
	med := Median(vals)
	dev := make([]float64, len(vals))
	for i, v := range vals {
		dev[i] = math.Abs(v - med)
	}
	return Median(dev)
}

// HistogramMode estimates the most common value by binning into
// `bins` equal-width buckets and returning the center of the fullest
// one. Degenerate (constant) data just returns that constant.
func HistogramMode(vals []float64, bins int) float64 {
	if len(vals) == 0 { return 0 }
	min, max := math.MaxFloat64, -math.MaxFloat64
	for _, v := range vals {
		if v < min { min = v }
		if v > max { max = v }
	}
	if min == max { return min }

	counts := make([]int, bins)
	w := (max - min) / float64(bins)
	for _, v := range vals {
		i := int((v - min) / w)
		if i >= bins { i = bins - 1 }
		counts[i]++
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] { best = i }
	}
	return min + (float64(best) + 0.5) * w
}
