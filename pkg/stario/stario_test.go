package stario

import(
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"starphot/pkg/flux"
	"starphot/pkg/frame"
	"starphot/pkg/pgrid"
	"starphot/pkg/pipeline"
	"starphot/pkg/segment"
	"starphot/pkg/track"
)

func testFrame(ts time.Time) *frame.Frame {
	g := pgrid.New(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			g.Set(x, y, float64(y*8+x))
		}
	}
	f := frame.New(frame.Meta{Camera: 2, CCD: 3, Timestamp: ts}, g)
	f.Bad = frame.NewMask(8, 8)
	f.Bad.Set(1, 2, true)
	return f
}

func TestFrameRoundTrip(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fn := filepath.Join(t.TempDir(), "f"+FrameExt)

	if err := WriteFrame(fn, testFrame(t0)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFrame(fn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.Camera != 2 || got.CCD != 3 {
		t.Fatalf("metadata lost: %+v", got.Meta)
	}
	if !got.Timestamp.Equal(t0) {
		t.Fatalf("timestamp lost: %s", got.Timestamp)
	}
	if got.Pix.Dx() != 8 || got.Pix.Dy() != 8 {
		t.Fatalf("dimensions lost: %dx%d", got.Pix.Dx(), got.Pix.Dy())
	}
	if got.Pix.Get(5, 3) != 29 {
		t.Fatalf("pixel data lost: %f", got.Pix.Get(5, 3))
	}
	if !got.Bad.Bad(1, 2) || got.Bad.Count() != 1 {
		t.Fatalf("bad mask lost")
	}
}

func TestReadSeriesDirSortsByTimestamp(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Lexical filename order is the reverse of time order.
	if err := WriteFrame(filepath.Join(dir, "b"+FrameExt), testFrame(t0)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFrame(filepath.Join(dir, "a"+FrameExt), testFrame(t0.Add(time.Hour))); err != nil {
		t.Fatalf("write: %v", err)
	}

	frames, err := ReadSeriesDir(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if !frames[0].Timestamp.Equal(t0) {
		t.Fatalf("frames not in time order")
	}
}

func TestReadSeriesDirEmpty(t *testing.T) {
	if _, err := ReadSeriesDir(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}

func TestWriteSeriesResult(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	g := pgrid.New(8, 8)
	g.Fill(1)
	cleaned := &frame.CleanedFrame{
		Meta: frame.Meta{Camera: 2, CCD: 3, Timestamp: t0},
		Pix:  g,
	}

	lm := segment.NewLabelMap(8, 8)
	lm.Set(4, 4, 1)

	mask := []image.Point{image.Pt(4, 4)}
	res := &pipeline.SeriesResult{
		RunID:  "test-run",
		Camera: 2,
		CCD:    3,
		Cleaned: []*frame.CleanedFrame{cleaned},
		Labels:  []*segment.LabelMap{lm},
		Catalogue: &track.Catalogue{
			Apertures: []*track.Aperture{{ID: 1, Masks: map[int][]image.Point{0: mask}}},
			NumFrames: 1,
			Width:     8,
			Height:    8,
		},
		Curves: []flux.Curve{{
			ApertureID: 1,
			Points:     []flux.Point{{Timestamp: t0, Flux: 1, MaskFlux: 120}},
		}},
	}

	dir := filepath.Join(t.TempDir(), "run")
	if err := WriteSeriesResult(dir, res); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "manifest.cbor"))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	man := Manifest{}
	if err := cbor.Unmarshal(b, &man); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if man.RunID != "test-run" || man.NumFrames != 1 || man.Apertures != 1 {
		t.Fatalf("manifest wrong: %+v", man)
	}

	for _, fn := range []string{"cleaned-0000.cbor", "labels-0000.cbor", "catalogue.cbor", "curves.cbor"} {
		if _, err := os.Stat(filepath.Join(dir, fn)); err != nil {
			t.Fatalf("missing output %s: %v", fn, err)
		}
	}
}
