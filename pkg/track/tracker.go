package track

import(
	"fmt"
	"image"
	"log"
	"sort"

	"starphot/pkg/segment"
)

// Options configures cross-frame identity matching. Zero values mean
// "use the default".
type Options struct {
	MinOverlap float64 `yaml:"minoverlap"` // IoU below this never matches
	MaxMissed  int     `yaml:"maxmissed"`  // consecutive misses tolerated before retiring
}

func DefaultOptions() Options {
	return Options{
		MinOverlap: 0.3,
		MaxMissed:  3,
	}
}

func (o *Options)fillDefaults() {
	d := DefaultOptions()
	if o.MinOverlap <= 0 { o.MinOverlap = d.MinOverlap }
	if o.MaxMissed <= 0  { o.MaxMissed = d.MaxMissed }
}

// A Tracker assigns stable aperture identities across a time series
// of per-frame label maps. Per-frame labels carry no meaning across
// frames; identity continuity comes from pixel-set overlap against a
// registry of known apertures.
type Tracker struct {
	Opts Options
}

func NewTracker(opts Options) *Tracker {
	opts.fillDefaults()
	return &Tracker{Opts: opts}
}

type candidate struct {
	iou        float64
	apIdx      int   // index into the active registry
	clusterIdx int   // index into the frame's cluster list
}

// Track processes the label maps in time order and returns the stable
// aperture catalogue. Deterministic: the same input sequence always
// yields identical IDs and detection spans.
func (t *Tracker)Track(maps []*segment.LabelMap) (*Catalogue, error) {
	if len(maps) == 0 {
		return nil, fmt.Errorf("track: empty series")
	}
	w, h := maps[0].Dx(), maps[0].Dy()
	for i, lm := range maps[1:] {
		if lm.Dx() != w || lm.Dy() != h {
			return nil, fmt.Errorf("track: map %d is %dx%d, want %dx%d", i+1, lm.Dx(), lm.Dy(), w, h)
		}
	}

	cat := Catalogue{NumFrames: len(maps), Width: w, Height: h}
	nextID := 1

	for fi, lm := range maps {
		clusters := lm.Clusters()

		active := []*Aperture{}
		for _, a := range cat.Apertures {
			if a.active { active = append(active, a) }
		}

		// Score every (aperture, cluster) pair above the overlap
		// threshold, then assign greedily, best overlap first. A
		// conflict (two apertures claiming one cluster) resolves to
		// the higher-IoU pair; the loser goes undetected this frame.
		cands := []candidate{}
		for ai, a := range active {
			prev := pixelSet(a.Masks[a.LastFrame], w)
			for ci, c := range clusters {
				iou := overlapIoU(prev, c.Pixels, w)
				if iou >= t.Opts.MinOverlap {
					cands = append(cands, candidate{iou, ai, ci})
				}
			}
		}
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].iou != cands[j].iou { return cands[i].iou > cands[j].iou }
			if cands[i].apIdx != cands[j].apIdx { return cands[i].apIdx < cands[j].apIdx }
			return cands[i].clusterIdx < cands[j].clusterIdx
		})

		apMatched := make([]bool, len(active))
		clMatched := make([]bool, len(clusters))
		for _, c := range cands {
			if apMatched[c.apIdx] || clMatched[c.clusterIdx] {
				if !apMatched[c.apIdx] {
					log.Printf("track frame %d: aperture %d lost cluster %d to a better overlap (iou %.2f)",
						fi, active[c.apIdx].ID, clusters[c.clusterIdx].Label, c.iou)
				}
				continue
			}
			apMatched[c.apIdx] = true
			clMatched[c.clusterIdx] = true
			active[c.apIdx].updateFrom(fi, clusters[c.clusterIdx].Pixels)
		}

		// Unmatched apertures persist as gaps until they've been gone
		// too long.
		for ai, a := range active {
			if apMatched[ai] { continue }
			a.missed++
			if a.missed > t.Opts.MaxMissed {
				a.active = false
			}
		}

		// Unmatched clusters are new sources.
		for ci, c := range clusters {
			if clMatched[ci] { continue }
			a := &Aperture{
				ID:         nextID,
				FirstFrame: fi,
				Masks:      map[int][]image.Point{},
				active:     true,
			}
			nextID++
			a.updateFrom(fi, c.Pixels)
			cat.Apertures = append(cat.Apertures, a)
		}
	}

	return &cat, nil
}

func pixelSet(pixels []image.Point, stride int) map[int]bool {
	set := make(map[int]bool, len(pixels))
	for _, p := range pixels {
		set[p.Y*stride+p.X] = true
	}
	return set
}

// overlapIoU is intersection-over-union of two pixel sets.
func overlapIoU(a map[int]bool, b []image.Point, stride int) float64 {
	if len(a) == 0 || len(b) == 0 { return 0 }
	inter := 0
	for _, p := range b {
		if a[p.Y*stride+p.X] { inter++ }
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
