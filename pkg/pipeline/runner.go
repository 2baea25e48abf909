package pipeline

import(
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pbnjay/memory"

	"starphot/pkg/flux"
	"starphot/pkg/frame"
	"starphot/pkg/photom"
	"starphot/pkg/segment"
	"starphot/pkg/track"
)

// A Runner drives one observation series (one camera/CCD pair over a
// time window) through the full pipeline: per-frame correction and
// segmentation in parallel, then sequential tracking and photometry.
type Runner struct {
	Cfg       Config
	corrector *photom.Corrector
	segmenter *segment.Segmenter
	tracker   *track.Tracker
}

func NewRunner(cfg Config) (*Runner, error) {
	corrector, err := photom.NewCorrector(cfg.Background)
	if err != nil {
		return nil, fmt.Errorf("runner: %v", err)
	}
	return &Runner{
		Cfg:       cfg,
		corrector: corrector,
		segmenter: segment.NewSegmenter(cfg.Segmentation),
		tracker:   track.NewTracker(cfg.Tracking),
	}, nil
}

// SeriesResult is everything one run produces, handed to whatever
// persistence collaborator the caller wired up.
type SeriesResult struct {
	RunID   string
	Camera  int
	CCD     int

	Cleaned   []*frame.CleanedFrame
	Labels    []*segment.LabelMap
	Catalogue *track.Catalogue
	Curves    []flux.Curve
	Stats     *RunStats
}

type frameJob struct {
	idx int
	f   *frame.Frame
}

type frameResult struct {
	idx     int
	cleaned *frame.CleanedFrame
	labels  *segment.LabelMap
	elapsed time.Duration
	err     error
}

// RunSeries processes the frames of one series in time order. Frames
// are validated as a unit first: a malformed series fails whole,
// without touching other series. A closed `done` channel abandons the
// run between frames; results produced so far are simply dropped.
func (r *Runner)RunSeries(frames []*frame.Frame, done <-chan struct{}) (*SeriesResult, error) {
	if err := frame.CheckSeries(frames); err != nil {
		return nil, fmt.Errorf("malformed series: %v", err)
	}

	res := SeriesResult{
		RunID:  uuid.New().String(),
		Camera: frames[0].Camera,
		CCD:    frames[0].CCD,
		Stats:  newRunStats(),
	}

	nWorkers := r.workerCount(len(frames), uint64(frames[0].Pix.NumPixels())*8)
	if r.Cfg.Verbosity > 0 {
		log.Printf("run %s: %s, %d frames, %d workers", res.RunID, frames[0].Meta, len(frames), nWorkers)
	}

	// Stages 1+2 are embarrassingly parallel: one frame per worker,
	// no shared mutable state, results collected by this goroutine.
	var wg sync.WaitGroup
	jobsChan := make(chan frameJob, len(frames))
	resultsChan := make(chan frameResult, len(frames))

	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				start := time.Now()
				cleaned, labels, err := r.processFrame(job.f)
				resultsChan <- frameResult{job.idx, cleaned, labels, time.Since(start), err}
			}
		}()
	}

	canceled := false
feed:
	for i, f := range frames {
		select {
		case <-done:
			canceled = true
			break feed
		default:
		}
		jobsChan <- frameJob{i, f}
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	if canceled {
		return nil, fmt.Errorf("run %s: abandoned", res.RunID)
	}

	res.Cleaned = make([]*frame.CleanedFrame, len(frames))
	res.Labels = make([]*segment.LabelMap, len(frames))
	for result := range resultsChan {
		if result.err != nil {
			return nil, fmt.Errorf("run %s frame %d: %v", res.RunID, result.idx, result.err)
		}
		res.Cleaned[result.idx] = result.cleaned
		res.Labels[result.idx] = result.labels

		if r.Cfg.Verbosity > 1 {
			log.Printf("frame %d cleaned: %s", result.idx, result.cleaned.Pix.Stats())
		}

		res.Stats.recordFrameMillis(result.elapsed.Milliseconds())
		if result.cleaned.Diag.Degenerate    { res.Stats.Degenerate++ }
		if result.cleaned.Diag.FitFailed     { res.Stats.FitFailed++ }
		if result.cleaned.Diag.GlowCorrected { res.Stats.GlowCorrected++ }
	}
	for _, lm := range res.Labels {
		for _, c := range lm.Clusters() {
			res.Stats.recordClusterSize(len(c.Pixels))
		}
	}

	// Stages 3+4 need the frames in time order; they run sequentially
	// for this series (independent series can still run side by side).
	cat, err := r.tracker.Track(res.Labels)
	if err != nil {
		return nil, fmt.Errorf("run %s: %v", res.RunID, err)
	}
	res.Catalogue = cat

	curves, err := flux.NewAggregator(r.Cfg.Photometry).Aggregate(cat, res.Cleaned)
	if err != nil {
		return nil, fmt.Errorf("run %s: %v", res.RunID, err)
	}
	res.Curves = curves

	if r.Cfg.Verbosity > 0 {
		log.Printf("run %s: %d apertures, %d curves; %s", res.RunID, len(cat.Apertures), len(curves), res.Stats)
	}
	return &res, nil
}

func (r *Runner)processFrame(f *frame.Frame) (*frame.CleanedFrame, *segment.LabelMap, error) {
	cleaned, err := r.corrector.Correct(f)
	if err != nil {
		return nil, nil, err
	}
	labels, err := r.segmenter.Segment(cleaned)
	if err != nil {
		return nil, nil, err
	}
	return cleaned, labels, nil
}

// workerCount picks the frame-level parallelism: the configured
// value, otherwise GOMAXPROCS capped so the in-flight frame copies
// stay within a fraction of physical memory.
func (r *Runner)workerCount(nFrames int, frameBytes uint64) int {
	n := r.Cfg.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
		if frameBytes > 0 {
			budget := memory.TotalMemory() / 4
			// raw + cleaned + two fit surfaces in flight per worker
			byMem := int(budget / (4 * frameBytes))
			if byMem < 1 { byMem = 1 }
			if byMem < n { n = byMem }
		}
	}
	if n > nFrames { n = nFrames }
	if n < 1 { n = 1 }
	return n
}
