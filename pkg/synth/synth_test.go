package synth

import(
	"math"
	"testing"
	"time"

	"starphot/pkg/frame"
)

func testMeta() frame.Meta {
	return frame.Meta{Camera: 1, CCD: 1, Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func TestFrameReproducible(t *testing.T) {
	opts := Options{Width: 32, Height: 32, Background: 10, NoiseSigma: 2, Seed: 7}
	stars := []Star{{X: 16, Y: 16, Flux: 500, Sigma: 1.5}}

	f1 := Frame(testMeta(), opts, stars)
	f2 := Frame(testMeta(), opts, stars)

	for i, v := range f1.Pix.Values() {
		if f2.Pix.Values()[i] != v {
			t.Fatalf("same seed produced different frames at index %d", i)
		}
	}
}

func TestStarFluxNormalization(t *testing.T) {
	opts := Options{Width: 64, Height: 64}
	f := Frame(testMeta(), opts, []Star{{X: 32, Y: 32, Flux: 1000, Sigma: 1.5}})

	sum := 0.0
	for _, v := range f.Pix.Values() {
		sum += v
	}
	if math.Abs(sum-1000)/1000 > 0.01 {
		t.Fatalf("expected total flux ~1000, got %f", sum)
	}
}

func TestGlowRaisesItsCorner(t *testing.T) {
	opts := Options{Width: 64, Height: 64, Background: 100, GlowAmp: 50, GlowScale: 20, GlowAt: frame.CornerTopLeft}
	f := Frame(testMeta(), opts, nil)

	corner := f.Pix.Get(0, 0)
	far := f.Pix.Get(63, 63)
	if corner-far < 40 {
		t.Fatalf("expected ~50 extra at the glow corner, got %f", corner-far)
	}
}
