package stario

import(
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	"starphot/pkg/pipeline"
)

// Manifest describes one persisted run.
type Manifest struct {
	RunID     string      `cbor:"run_id"`
	Camera    int         `cbor:"camera"`
	CCD       int         `cbor:"ccd"`
	NumFrames int         `cbor:"num_frames"`
	Frames    []time.Time `cbor:"frames"`
	Apertures int         `cbor:"apertures"`
}

type apertureRecord struct {
	ID         int                `cbor:"id"`
	CentroidX  float64            `cbor:"centroid_x"`
	CentroidY  float64            `cbor:"centroid_y"`
	PixelCount int                `cbor:"pixel_count"`
	FirstFrame int                `cbor:"first_frame"`
	LastFrame  int                `cbor:"last_frame"`
	Masks      map[int][][2]int32 `cbor:"masks"`
}

type curvePoint struct {
	Timestamp time.Time `cbor:"timestamp"`
	Flux      float64   `cbor:"flux"`
	MaskFlux  float64   `cbor:"mask_flux"`
}

type curveRecord struct {
	ApertureID int          `cbor:"aperture_id"`
	Points     []curvePoint `cbor:"points"`
}

type labelRecord struct {
	Width  int     `cbor:"width"`
	Labels []int32 `cbor:"labels"`
}

// WriteSeriesResult persists everything a run produced into one
// directory: manifest, cleaned frames, per-frame label maps, the
// aperture catalogue and the flux curves.
func WriteSeriesResult(dir string, res *pipeline.SeriesResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir '%s': %v", dir, err)
	}

	man := Manifest{
		RunID:     res.RunID,
		Camera:    res.Camera,
		CCD:       res.CCD,
		NumFrames: len(res.Cleaned),
		Apertures: len(res.Catalogue.Apertures),
	}
	for _, cf := range res.Cleaned {
		man.Frames = append(man.Frames, cf.Timestamp)
	}
	if err := writeCBOR(filepath.Join(dir, "manifest.cbor"), man); err != nil {
		return err
	}

	for i, cf := range res.Cleaned {
		rec := FrameRecord{
			Camera:    cf.Camera,
			CCD:       cf.CCD,
			Timestamp: cf.Timestamp,
			Width:     cf.Pix.Dx(),
			Pixels:    cf.Pix.Values(),
		}
		if cf.Bad != nil {
			for y := 0; y < cf.Bad.Dy(); y++ {
				for x := 0; x < cf.Bad.Dx(); x++ {
					if cf.Bad.Bad(x, y) {
						rec.Bad = append(rec.Bad, y*cf.Bad.Dx()+x)
					}
				}
			}
		}
		if err := writeCBOR(filepath.Join(dir, fmt.Sprintf("cleaned-%04d.cbor", i)), rec); err != nil {
			return err
		}

		lm := res.Labels[i]
		lrec := labelRecord{Width: lm.Dx()}
		for y := 0; y < lm.Dy(); y++ {
			for x := 0; x < lm.Dx(); x++ {
				lrec.Labels = append(lrec.Labels, lm.Get(x, y))
			}
		}
		if err := writeCBOR(filepath.Join(dir, fmt.Sprintf("labels-%04d.cbor", i)), lrec); err != nil {
			return err
		}
	}

	apRecs := make([]apertureRecord, 0, len(res.Catalogue.Apertures))
	for _, ap := range res.Catalogue.Apertures {
		rec := apertureRecord{
			ID:         ap.ID,
			CentroidX:  ap.CentroidX,
			CentroidY:  ap.CentroidY,
			PixelCount: ap.PixelCount,
			FirstFrame: ap.FirstFrame,
			LastFrame:  ap.LastFrame,
			Masks:      map[int][][2]int32{},
		}
		for fi, mask := range ap.Masks {
			pts := make([][2]int32, len(mask))
			for i, p := range mask {
				pts[i] = [2]int32{int32(p.X), int32(p.Y)}
			}
			rec.Masks[fi] = pts
		}
		apRecs = append(apRecs, rec)
	}
	if err := writeCBOR(filepath.Join(dir, "catalogue.cbor"), apRecs); err != nil {
		return err
	}

	curveRecs := make([]curveRecord, 0, len(res.Curves))
	for _, c := range res.Curves {
		rec := curveRecord{ApertureID: c.ApertureID}
		for _, p := range c.Points {
			rec.Points = append(rec.Points, curvePoint{p.Timestamp, p.Flux, p.MaskFlux})
		}
		curveRecs = append(curveRecs, rec)
	}
	return writeCBOR(filepath.Join(dir, "curves.cbor"), curveRecs)
}

func writeCBOR(filename string, v any) error {
	b, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode '%s': %v", filename, err)
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("write '%s': %v", filename, err)
	}
	return nil
}
