package photom

import(
	"math"
	"testing"
	"time"

	"starphot/pkg/frame"
	"starphot/pkg/pgrid"
)

func testMeta(ccd int) frame.Meta {
	return frame.Meta{Camera: 1, CCD: ccd, Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func TestNewCorrectorRejectsUnknownGlowModel(t *testing.T) {
	opts := DefaultOptions()
	opts.GlowModel = "parabolic"
	if _, err := NewCorrector(opts); err == nil {
		t.Fatalf("expected error for unknown glow model")
	}
}

// A flat sky with one bright pixel: the background fit must find
// exactly the sky level (the outlier gets sigma-clipped away), so the
// residual is the star and nothing else.
func TestCorrectFlatSkyWithStar(t *testing.T) {
	g := pgrid.New(128, 128)
	g.Fill(100)
	g.Set(40, 40, 150)

	c, err := NewCorrector(DefaultOptions())
	if err != nil {
		t.Fatalf("corrector: %v", err)
	}
	cleaned, err := c.Correct(frame.New(testMeta(1), g))
	if err != nil {
		t.Fatalf("correct: %v", err)
	}

	if cleaned.Diag.Degenerate || cleaned.Diag.FitFailed {
		t.Fatalf("unexpected diagnostics: %+v", cleaned.Diag)
	}
	if got := cleaned.Pix.Get(40, 40); math.Abs(got-50) > 1e-6 {
		t.Fatalf("expected star residual 50, got %f", got)
	}
	for _, p := range [][2]int{{0, 0}, {127, 127}, {64, 10}, {10, 100}} {
		if got := cleaned.Pix.Get(p[0], p[1]); math.Abs(got) > 1e-6 {
			t.Fatalf("expected zero sky residual at (%d,%d), got %f", p[0], p[1], got)
		}
	}
}

func TestCorrectDegenerateFrame(t *testing.T) {
	g := pgrid.New(64, 64)
	g.Fill(42)

	c, _ := NewCorrector(DefaultOptions())
	cleaned, err := c.Correct(frame.New(testMeta(1), g))
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if !cleaned.Diag.Degenerate {
		t.Fatalf("expected Degenerate flag for uniform frame")
	}
	if cleaned.Pix.Get(10, 10) != 42 {
		t.Fatalf("degenerate frame should pass through unchanged")
	}
}

func TestCorrectPreservesBadPixels(t *testing.T) {
	g := pgrid.New(128, 128)
	g.Fill(100)
	g.Set(40, 40, 150)
	g.Set(5, 5, 1e6) // hot pixel, flagged

	bad := frame.NewMask(128, 128)
	bad.Set(5, 5, true)

	f := frame.New(testMeta(1), g)
	f.Bad = bad

	c, _ := NewCorrector(DefaultOptions())
	cleaned, err := c.Correct(f)
	if err != nil {
		t.Fatalf("correct: %v", err)
	}

	if got := cleaned.Pix.Get(5, 5); got != 1e6 {
		t.Fatalf("bad pixel should keep its input value, got %f", got)
	}
	// The flagged pixel was excluded from the fit, so its neighbors
	// still come out clean.
	if got := cleaned.Pix.Get(6, 6); math.Abs(got) > 1e-6 {
		t.Fatalf("expected zero residual next to bad pixel, got %f", got)
	}
	if cleaned.Bad == nil || !cleaned.Bad.Bad(5, 5) {
		t.Fatalf("bad mask should carry through")
	}
}

// With a crop margin set, the buffer pixels are excluded from the fit
// and come out zeroed; the interior corrects as usual.
func TestCorrectCropMargin(t *testing.T) {
	g := pgrid.New(128, 128)
	g.Fill(100)
	g.Set(40, 40, 150)
	g.Set(0, 0, 9999) // junk in the calibration buffer

	opts := DefaultOptions()
	opts.CropMargin = 8
	c, err := NewCorrector(opts)
	if err != nil {
		t.Fatalf("corrector: %v", err)
	}
	cleaned, err := c.Correct(frame.New(testMeta(1), g))
	if err != nil {
		t.Fatalf("correct: %v", err)
	}

	if got := cleaned.Pix.Get(0, 0); got != 0 {
		t.Fatalf("expected zeroed buffer pixel, got %f", got)
	}
	if got := cleaned.Pix.Get(40, 40); math.Abs(got-50) > 1e-6 {
		t.Fatalf("expected star residual 50, got %f", got)
	}
	if got := cleaned.Pix.Get(64, 64); math.Abs(got) > 1e-6 {
		t.Fatalf("expected zero interior residual, got %f", got)
	}
}

func TestCorrectNilFrame(t *testing.T) {
	c, _ := NewCorrector(DefaultOptions())
	if _, err := c.Correct(nil); err == nil {
		t.Fatalf("expected error for nil frame")
	}
}

// Pure glow surface with nothing else: the profile must be detected,
// match the injected ramp reasonably well inside the glow region, and
// be exactly zero before the start radius.
func TestEstimateGlowRecoversRamp(t *testing.T) {
	w, h := 200, 200
	g := pgrid.New(w, h)

	// glow in the top-left corner, so distances measure from bottom-right
	ox, oy := w-1, h-1
	rampStart := 240.0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := glowDistRadial(x, y, ox, oy)
			if d > rampStart {
				g.Set(x, y, d-rampStart)
			}
		}
	}

	glow := estimateGlow(g, nil, frame.CornerTopLeft, glowDistRadial, DefaultOptions())
	if glow == nil {
		t.Fatalf("expected glow to be detected")
	}

	// The profile start radius is 0.8 * maxDist = 225; the grid
	// center is well inside that, so it must be untouched.
	if got := glow.Get(100, 100); got != 0 {
		t.Fatalf("expected exact zero outside the glow region, got %f", got)
	}

	// Near the glow corner the injected value is ~41; the binned
	// profile clamps at the last bin center, so allow generous slack.
	if got := glow.Get(0, 0); got < 25 || got > 45 {
		t.Fatalf("expected glow ~30-41 at the corner, got %f", got)
	}
}

func TestEstimateGlowNoOpOnFlatData(t *testing.T) {
	g := pgrid.New(200, 200)

	glow := estimateGlow(g, nil, frame.CornerTopLeft, glowDistRadial, DefaultOptions())
	if glow != nil {
		t.Fatalf("expected no glow on flat data")
	}
}

func TestGlowDistDiagonal(t *testing.T) {
	// A step of (1,1) along the diagonal covers sqrt(2) of distance.
	d := glowDistDiagonal(11, 11, 10, 10)
	if math.Abs(d-math.Sqrt2) > 1e-12 {
		t.Fatalf("expected sqrt(2), got %f", d)
	}
}
