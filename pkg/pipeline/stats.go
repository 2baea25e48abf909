package pipeline

import(
	"fmt"

	"github.com/codahale/hdrhistogram"
	"github.com/skypies/util/histogram"
)

// RunStats collects per-run diagnostics: how long frames took, how
// big the detected clusters were, and how often the corrector hit
// degenerate input or found glow.
type RunStats struct {
	FrameMillis  *hdrhistogram.Histogram
	ClusterSizes histogram.Histogram

	FramesProcessed int
	Degenerate      int
	FitFailed       int
	GlowCorrected   int
	ClustersFound   int
}

func newRunStats() *RunStats {
	return &RunStats{
		// 1ms..10min per frame, 3 significant figures
		FrameMillis:  hdrhistogram.New(1, 600000, 3),
		ClusterSizes: histogram.Histogram{NumBuckets: 50, ValMin: 0, ValMax: 500},
	}
}

func (rs *RunStats)recordFrameMillis(ms int64) {
	if ms < 1 { ms = 1 }
	rs.FrameMillis.RecordValue(ms)
	rs.FramesProcessed++
}

func (rs *RunStats)recordClusterSize(n int) {
	rs.ClusterSizes.Add(histogram.ScalarVal(n))
	rs.ClustersFound++
}

func (rs *RunStats)String() string {
	return fmt.Sprintf("%d frames (p50 %dms, p99 %dms), %d clusters, %d degenerate, %d fit failures, %d glow-corrected",
		rs.FramesProcessed,
		rs.FrameMillis.ValueAtQuantile(50),
		rs.FrameMillis.ValueAtQuantile(99),
		rs.ClustersFound, rs.Degenerate, rs.FitFailed, rs.GlowCorrected)
}
