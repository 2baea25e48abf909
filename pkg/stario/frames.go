package stario

import(
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"

	"starphot/pkg/frame"
	"starphot/pkg/pgrid"
)

// File-based collaborator layer. The pipeline core exchanges
// in-memory values and defines no wire format; this package is one
// concrete choice (CBOR files on disk) for feeding frames in and
// persisting run outputs.

const FrameExt = ".frame.cbor"

// A FrameRecord is the on-disk form of one calibrated frame.
type FrameRecord struct {
	Camera    int       `cbor:"camera"`
	CCD       int       `cbor:"ccd"`
	Timestamp time.Time `cbor:"timestamp"`
	Width     int       `cbor:"width"`
	Pixels    []float64 `cbor:"pixels"`
	Bad       []int     `cbor:"bad,omitempty"` // flat indices of flagged pixels
}

func WriteFrame(filename string, f *frame.Frame) error {
	rec := FrameRecord{
		Camera:    f.Camera,
		CCD:       f.CCD,
		Timestamp: f.Timestamp,
		Width:     f.Pix.Dx(),
		Pixels:    f.Pix.Values(),
	}
	if f.Bad != nil {
		for y := 0; y < f.Bad.Dy(); y++ {
			for x := 0; x < f.Bad.Dx(); x++ {
				if f.Bad.Bad(x, y) {
					rec.Bad = append(rec.Bad, y*f.Bad.Dx()+x)
				}
			}
		}
	}

	b, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode frame '%s': %v", filename, err)
	}
	return os.WriteFile(filename, b, 0644)
}

func ReadFrame(filename string) (*frame.Frame, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read frame '%s': %v", filename, err)
	}

	rec := FrameRecord{}
	if err := cbor.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode frame '%s': %v", filename, err)
	}

	g, err := pgrid.FromValues(rec.Width, rec.Pixels)
	if err != nil {
		return nil, fmt.Errorf("frame '%s': %v", filename, err)
	}

	f := frame.New(frame.Meta{Camera: rec.Camera, CCD: rec.CCD, Timestamp: rec.Timestamp}, g)
	if len(rec.Bad) > 0 {
		mask := frame.NewMask(g.Dx(), g.Dy())
		for _, i := range rec.Bad {
			mask.Set(i%g.Dx(), i/g.Dx(), true)
		}
		f.Bad = mask
	}
	return f, nil
}

// ReadSeriesDir loads every frame file in the directory and returns
// them in timestamp order, ready for a pipeline run.
func ReadSeriesDir(dir string) ([]*frame.Frame, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+FrameExt))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no %s files in '%s'", FrameExt, dir)
	}

	frames := make([]*frame.Frame, 0, len(matches))
	for _, m := range matches {
		f, err := ReadFrame(m)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Timestamp.Before(frames[j].Timestamp) })
	return frames, nil
}
