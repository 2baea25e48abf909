package segment

import(
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"

	"starphot/pkg/frame"
)

// Options configures segmentation. Zero values mean "use the default".
type Options struct {
	HistogramBins int     `yaml:"histogrambins"` // bins for the noise-floor mode estimate
	FloorMADScale float64 `yaml:"floormadscale"` // noise floor = mode + this * MAD
	PatchSize     int     `yaml:"patchsize"`     // core tile edge for patch-parallel watershed
	OverlapMargin int     `yaml:"overlapmargin"` // patch overlap, must cover the max aperture radius
	MinRefineSize int     `yaml:"minrefinesize"` // clusters below this are never subdivided
	MergeVotes    int     `yaml:"mergevotes"`    // shared boundary pixels needed to merge patch clusters
	Workers       int     `yaml:"workers"`       // patch workers, 0 = GOMAXPROCS
}

func DefaultOptions() Options {
	return Options{
		HistogramBins: 100,
		FloorMADScale: 0.8,
		PatchSize:     256,
		OverlapMargin: 16,
		MinRefineSize: 10,
		MergeVotes:    2,
	}
}

func (o *Options)fillDefaults() {
	d := DefaultOptions()
	if o.HistogramBins <= 0   { o.HistogramBins = d.HistogramBins }
	if o.FloorMADScale <= 0   { o.FloorMADScale = d.FloorMADScale }
	if o.PatchSize <= 0       { o.PatchSize = d.PatchSize }
	if o.OverlapMargin <= 0   { o.OverlapMargin = d.OverlapMargin }
	if o.MinRefineSize <= 0   { o.MinRefineSize = d.MinRefineSize }
	if o.MergeVotes <= 0      { o.MergeVotes = d.MergeVotes }
}

// A Segmenter clusters the pixels of a cleaned frame into disjoint
// aperture regions via a patch-parallel watershed transform. It is
// stateless; one instance is safe to share across goroutines.
type Segmenter struct {
	Opts Options
}

func NewSegmenter(opts Options) *Segmenter {
	opts.fillDefaults()
	return &Segmenter{Opts: opts}
}

type patchJob struct {
	core, ext image.Rectangle
}

type patchResult struct {
	core, ext image.Rectangle
	labels    []int32 // ext-local, stride ext.Dx()
}

// Segment produces the frame's aperture label map. A frame with no
// pixels above the noise floor yields an all-background map, not an
// error.
func (s *Segmenter)Segment(cf *frame.CleanedFrame) (*LabelMap, error) {
	if cf == nil || cf.Pix == nil {
		return nil, fmt.Errorf("segment: frame has no pixels")
	}
	w, h := cf.Pix.Dx(), cf.Pix.Dy()
	lm := NewLabelMap(w, h)

	// Noise floor from the good pixels only.
	good := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !cf.Bad.Bad(x, y) {
				good = append(good, cf.Pix.Get(x, y))
			}
		}
	}
	if len(good) == 0 {
		return lm, nil
	}
	floor := noiseFloor(good, s.Opts.HistogramBins, s.Opts.FloorMADScale)

	fg := make([]bool, w*h)
	nFg := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if cf.Pix.Get(x, y) > floor && !cf.Bad.Bad(x, y) {
				fg[y*w+x] = true
				nFg++
			}
		}
	}

	seeds := findSeeds(cf.Pix, fg)
	if len(seeds) == 0 {
		return lm, nil
	}

	results := s.floodPatches(cf, fg, seeds)

	// Single-owner merge: every pixel's label comes from the patch
	// whose core contains it.
	final := make([]int32, w*h)
	for _, r := range results {
		ew := r.ext.Dx()
		for y := r.core.Min.Y; y < r.core.Max.Y; y++ {
			for x := r.core.Min.X; x < r.core.Max.X; x++ {
				final[y*w+x] = r.labels[(y-r.ext.Min.Y)*ew+(x-r.ext.Min.X)]
			}
		}
	}

	// Boundary reconciliation: where the overlap margin of one patch
	// disagrees with the owner's labeling, the two basins saw the same
	// catchment from different sides. Enough shared pixels and they
	// merge into one aperture.
	votes := map[[2]int32]int{}
	for _, r := range results {
		ew := r.ext.Dx()
		for y := r.ext.Min.Y; y < r.ext.Max.Y; y++ {
			for x := r.ext.Min.X; x < r.ext.Max.X; x++ {
				if image.Pt(x, y).In(r.core) { continue }
				claim := r.labels[(y-r.ext.Min.Y)*ew+(x-r.ext.Min.X)]
				owner := final[y*w+x]
				if claim == 0 || owner == 0 || claim == owner { continue }
				a, b := claim, owner
				if a > b { a, b = b, a }
				votes[[2]int32{a, b}]++
			}
		}
	}

	uf := newUnionFind(len(seeds) + 1)
	merged := 0
	for pair, n := range votes {
		if n >= s.Opts.MergeVotes {
			uf.union(int(pair[0]), int(pair[1]))
			merged++
		}
	}
	if merged > 0 {
		log.Printf("segment %s: reconciled %d patch-boundary cluster pairs", cf.Meta, merged)
		for i, l := range final {
			if l != 0 {
				final[i] = int32(uf.find(int(l)))
			}
		}
	}

	s.collapseSmall(final, fg, w, h)
	relabelSorted(final)

	copy(lm.labels, final)
	return lm, nil
}

// floodPatches runs the watershed over each extended patch through a
// worker pool, one patch per worker at a time. Patch results are
// independent; the caller owns the merge.
func (s *Segmenter)floodPatches(cf *frame.CleanedFrame, fg []bool, seeds []seedPoint) []patchResult {
	w, h := cf.Pix.Dx(), cf.Pix.Dy()
	ps, m := s.Opts.PatchSize, s.Opts.OverlapMargin

	jobs := []patchJob{}
	for y0 := 0; y0 < h; y0 += ps {
		for x0 := 0; x0 < w; x0 += ps {
			core := image.Rect(x0, y0, minInt(x0+ps, w), minInt(y0+ps, h))
			ext := image.Rect(maxInt(x0-m, 0), maxInt(y0-m, 0),
				minInt(x0+ps+m, w), minInt(y0+ps+m, h))
			jobs = append(jobs, patchJob{core, ext})
		}
	}

	nWorkers := s.Opts.Workers
	if nWorkers <= 0 { nWorkers = runtime.GOMAXPROCS(0) }
	if nWorkers > len(jobs) { nWorkers = len(jobs) }

	var wg sync.WaitGroup
	jobsChan := make(chan patchJob, len(jobs))
	resultsChan := make(chan patchResult, len(jobs))

	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				labels := watershedRegion(cf.Pix, fg, seeds, job.ext)
				resultsChan <- patchResult{job.core, job.ext, labels}
			}
		}()
	}

	for _, job := range jobs {
		jobsChan <- job
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	results := make([]patchResult, 0, len(jobs))
	for r := range resultsChan {
		results = append(results, r)
	}
	return results
}

// collapseSmall walks the connected foreground components and forces
// any component below the minimum refinable size down to a single
// label. Too few pixels can't support splitting one star into two, so
// skipping watershed refinement there is deliberate. It also mops up
// foreground pixels the patch floods never reached (apertures wider
// than the overlap margin).
func (s *Segmenter)collapseSmall(labels []int32, fg []bool, w, h int) {
	seen := make([]bool, w*h)
	comp := make([]int, 0, 256)
	queue := make([]int, 0, 256)

	for start := 0; start < w*h; start++ {
		if !fg[start] || seen[start] { continue }

		comp = comp[:0]
		queue = append(queue[:0], start)
		seen[start] = true
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			comp = append(comp, i)
			x, y := i%w, i/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h { continue }
					ni := ny*w + nx
					if fg[ni] && !seen[ni] {
						seen[ni] = true
						queue = append(queue, ni)
					}
				}
			}
		}

		minLabel := int32(0)
		unlabeled := false
		for _, i := range comp {
			switch l := labels[i]; {
			case l == 0:
				unlabeled = true
			case minLabel == 0 || l < minLabel:
				minLabel = l
			}
		}
		if minLabel == 0 { continue } // can't happen: every component holds a seed

		if len(comp) < s.Opts.MinRefineSize {
			for _, i := range comp { labels[i] = minLabel }
		} else if unlabeled {
			for _, i := range comp {
				if labels[i] == 0 { labels[i] = minLabel }
			}
		}
	}
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := unionFind{parent: make([]int, n)}
	for i := range uf.parent { uf.parent[i] = i }
	return &uf
}

func (uf *unionFind)find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// union keeps the lower root as canonical, so merges always resolve
// toward the lower seed index.
func (uf *unionFind)union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb { return }
	if ra > rb { ra, rb = rb, ra }
	uf.parent[rb] = ra
}

func minInt(a, b int) int { if a < b { return a }; return b }
func maxInt(a, b int) int { if a > b { return a }; return b }
