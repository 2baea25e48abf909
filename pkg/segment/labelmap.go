package segment

import(
	"image"
	"sort"
)

// A LabelMap assigns each pixel of one frame to an aperture label.
// Label 0 is background. Labels are compact (1..K) and only
// meaningful within their own frame; cross-frame identity is the
// tracker's job.
type LabelMap struct {
	stride int
	labels []int32
}

func NewLabelMap(w, h int) *LabelMap {
	return &LabelMap{stride: w, labels: make([]int32, w*h)}
}

func (lm *LabelMap)Set(x, y int, l int32) { lm.labels[lm.stride*y + x] = l }
func (lm *LabelMap)Get(x, y int) int32    { return lm.labels[lm.stride*y + x] }
func (lm *LabelMap)Dx() int               { return lm.stride }
func (lm *LabelMap)Dy() int               { return len(lm.labels) / lm.stride }

func (lm *LabelMap)MaxLabel() int32 {
	max := int32(0)
	for _, l := range lm.labels {
		if l > max { max = l }
	}
	return max
}

// A Cluster is one labeled aperture region, pixels in row-major order.
type Cluster struct {
	Label  int32
	Pixels []image.Point
}

// Clusters lists the map's aperture regions in ascending label order.
func (lm *LabelMap)Clusters() []Cluster {
	byLabel := map[int32][]image.Point{}
	for y := 0; y < lm.Dy(); y++ {
		for x := 0; x < lm.Dx(); x++ {
			if l := lm.Get(x, y); l != 0 {
				byLabel[l] = append(byLabel[l], image.Point{x, y})
			}
		}
	}

	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, int(l))
	}
	sort.Ints(labels)

	clusters := make([]Cluster, 0, len(labels))
	for _, l := range labels {
		clusters = append(clusters, Cluster{Label: int32(l), Pixels: byLabel[int32(l)]})
	}
	return clusters
}
