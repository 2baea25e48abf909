package pgrid

import(
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("expected median 2, got %f", got)
	}
	if got := Median([]float64{7}); got != 7 {
		t.Fatalf("expected median 7, got %f", got)
	}
	if got := Median(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %f", got)
	}

	// Input must not be reordered.
	vals := []float64{9, 1, 5}
	Median(vals)
	if vals[0] != 9 || vals[1] != 1 || vals[2] != 5 {
		t.Fatalf("input was reordered: %v", vals)
	}
}

func TestMAD(t *testing.T) {
	// median 3, deviations {2,1,0,1,97}, median deviation 1
	if got := MAD([]float64{1, 2, 3, 4, 100}); got != 1 {
		t.Fatalf("expected MAD 1, got %f", got)
	}
	if got := MAD([]float64{5, 5, 5}); got != 0 {
		t.Fatalf("expected MAD 0 for constant input, got %f", got)
	}
}

func TestHistogramMode(t *testing.T) {
	// Three values land in the lower of two bins; mode is its center.
	got := HistogramMode([]float64{0, 0.1, 0.15, 1.0}, 2)
	if math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("expected mode 0.25, got %f", got)
	}

	if got := HistogramMode([]float64{4, 4, 4}, 10); got != 4 {
		t.Fatalf("expected constant input to return itself, got %f", got)
	}
	if got := HistogramMode(nil, 10); got != 0 {
		t.Fatalf("expected 0 for empty input, got %f", got)
	}
}

func TestMedianFilter3KillsOutlier(t *testing.T) {
	g := New(3, 3)
	g.Fill(1)
	g.Set(1, 1, 100)

	f := g.MedianFilter3()
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if f.Get(x, y) != 1 {
				t.Fatalf("expected 1 at (%d,%d), got %f", x, y, f.Get(x, y))
			}
		}
	}
}

func TestFromValues(t *testing.T) {
	g, err := FromValues(3, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if g.Dx() != 3 || g.Dy() != 2 {
		t.Fatalf("expected 3x2, got %dx%d", g.Dx(), g.Dy())
	}
	if g.Get(2, 1) != 6 {
		t.Fatalf("expected 6 at (2,1), got %f", g.Get(2, 1))
	}

	if _, err := FromValues(3, make([]float64, 7)); err == nil {
		t.Fatalf("expected error for non-tiling value count")
	}
}

func TestSubAndMinMax(t *testing.T) {
	g1 := New(2, 2)
	g1.Fill(10)
	g1.Set(1, 1, 3)

	g2 := New(2, 2)
	g2.Fill(1)

	g1.Sub(g2)
	min, max := g1.MinMax()
	if min != 2 || max != 9 {
		t.Fatalf("expected min 2 max 9, got %f %f", min, max)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	g1 := New(2, 2)
	g1.Fill(5)
	g2 := g1.Copy()
	g2.Set(0, 0, 99)
	if g1.Get(0, 0) != 5 {
		t.Fatalf("copy shares storage with original")
	}
}
