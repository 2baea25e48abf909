package frame

import(
	"fmt"
	"time"

	"starphot/pkg/pgrid"
)

// A Frame is one calibrated full-frame image from a given camera/CCD
// at a given time. Treated as immutable once built: pipeline stages
// return new grids rather than writing into this one.
type Frame struct {
	Meta
	Pix *pgrid.Grid
	Bad *Mask // optional quality mask; nil means all pixels usable
}

// Meta is the acquisition metadata carried through every stage.
type Meta struct {
	Camera    int
	CCD       int
	Timestamp time.Time
}

func (m Meta)String() string {
	return fmt.Sprintf("cam%d/ccd%d@%s", m.Camera, m.CCD, m.Timestamp.Format(time.RFC3339))
}

// Diagnostics records per-frame conditions that downstream consumers
// may care about but that never abort processing.
type Diagnostics struct {
	Degenerate    bool // uniform/all-zero input, correction skipped
	FitFailed     bool // background fit blew up, output equals input
	GlowCorrected bool // a corner glow profile was detected and removed
}

// A CleanedFrame is a background-subtracted frame. Values can go
// negative (noise around zero). It keeps only provenance metadata,
// no reference to the source Frame.
type CleanedFrame struct {
	Meta
	Pix  *pgrid.Grid
	Bad  *Mask
	Diag Diagnostics
}

func New(meta Meta, pix *pgrid.Grid) *Frame {
	return &Frame{Meta: meta, Pix: pix}
}

// CheckSeries validates that a time series of frames can be processed
// as one run: same camera/CCD, identical grid dimensions, strictly
// increasing timestamps. Any violation makes the whole series
// malformed.
func CheckSeries(frames []*Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("series is empty")
	}
	first := frames[0]
	if first.Pix == nil {
		return fmt.Errorf("series %s: frame 0 has no pixels", first.Meta)
	}
	for i, f := range frames[1:] {
		if f.Pix == nil {
			return fmt.Errorf("series %s: frame %d has no pixels", first.Meta, i+1)
		}
		if f.Camera != first.Camera || f.CCD != first.CCD {
			return fmt.Errorf("series %s: frame %d is from %s", first.Meta, i+1, f.Meta)
		}
		if f.Pix.Dx() != first.Pix.Dx() || f.Pix.Dy() != first.Pix.Dy() {
			return fmt.Errorf("series %s: frame %d is %dx%d, want %dx%d", first.Meta, i+1,
				f.Pix.Dx(), f.Pix.Dy(), first.Pix.Dx(), first.Pix.Dy())
		}
		if !f.Timestamp.After(frames[i].Timestamp) {
			return fmt.Errorf("series %s: frame %d timestamp %s not after %s", first.Meta, i+1,
				f.Timestamp, frames[i].Timestamp)
		}
	}
	return nil
}
