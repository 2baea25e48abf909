package frame

import(
	"testing"
	"time"

	"starphot/pkg/pgrid"
)

func seriesFrame(ccd int, w, h int, t0 time.Time) *Frame {
	return New(Meta{Camera: 1, CCD: ccd, Timestamp: t0}, pgrid.New(w, h))
}

func TestCheckSeries(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	frames := []*Frame{
		seriesFrame(2, 32, 32, t0),
		seriesFrame(2, 32, 32, t0.Add(30*time.Minute)),
		seriesFrame(2, 32, 32, t0.Add(60*time.Minute)),
	}
	if err := CheckSeries(frames); err != nil {
		t.Fatalf("expected valid series, got %v", err)
	}
}

func TestCheckSeriesRejectsMixedCCD(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	frames := []*Frame{
		seriesFrame(1, 32, 32, t0),
		seriesFrame(2, 32, 32, t0.Add(time.Hour)),
	}
	if err := CheckSeries(frames); err == nil {
		t.Fatalf("expected error for mixed CCDs")
	}
}

func TestCheckSeriesRejectsNonIncreasingTime(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	frames := []*Frame{
		seriesFrame(1, 32, 32, t0),
		seriesFrame(1, 32, 32, t0), // identical timestamp
	}
	if err := CheckSeries(frames); err == nil {
		t.Fatalf("expected error for non-increasing timestamps")
	}
}

func TestCheckSeriesRejectsMixedDims(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	frames := []*Frame{
		seriesFrame(1, 32, 32, t0),
		seriesFrame(1, 32, 16, t0.Add(time.Hour)),
	}
	if err := CheckSeries(frames); err == nil {
		t.Fatalf("expected error for mismatched dimensions")
	}
}

func TestCheckSeriesRejectsEmpty(t *testing.T) {
	if err := CheckSeries(nil); err == nil {
		t.Fatalf("expected error for empty series")
	}
}

func TestGlowCorner(t *testing.T) {
	expected := map[int]Corner{
		1: CornerTopLeft,
		2: CornerTopRight,
		3: CornerBottomLeft,
		4: CornerBottomRight,
	}
	for ccd, want := range expected {
		got, err := GlowCorner(ccd)
		if err != nil {
			t.Fatalf("ccd %d: unexpected error %v", ccd, err)
		}
		if got != want {
			t.Fatalf("ccd %d: expected %s, got %s", ccd, want, got)
		}
	}

	for _, ccd := range []int{0, 5, -1} {
		if _, err := GlowCorner(ccd); err == nil {
			t.Fatalf("ccd %d: expected error", ccd)
		}
	}
}

func TestCornerOpposite(t *testing.T) {
	for _, c := range []Corner{CornerTopLeft, CornerTopRight, CornerBottomLeft, CornerBottomRight} {
		if c.Opposite().Opposite() != c {
			t.Fatalf("%s: opposite is not an involution", c)
		}
		if c.Opposite() == c {
			t.Fatalf("%s: opposite should differ", c)
		}
	}
}

func TestCornerXY(t *testing.T) {
	if x, y := CornerBottomRight.XY(10, 20); x != 9 || y != 19 {
		t.Fatalf("expected (9,19), got (%d,%d)", x, y)
	}
	if x, y := CornerTopLeft.XY(10, 20); x != 0 || y != 0 {
		t.Fatalf("expected (0,0), got (%d,%d)", x, y)
	}
}

func TestMaskNilIsAllGood(t *testing.T) {
	var m *Mask
	if m.Bad(3, 3) {
		t.Fatalf("nil mask should flag nothing")
	}
}

func TestMaskSetAndCount(t *testing.T) {
	m := NewMask(4, 4)
	m.Set(1, 2, true)
	m.Set(3, 3, true)
	if !m.Bad(1, 2) || !m.Bad(3, 3) || m.Bad(0, 0) {
		t.Fatalf("mask bits wrong")
	}
	if m.Count() != 2 {
		t.Fatalf("expected count 2, got %d", m.Count())
	}
}
