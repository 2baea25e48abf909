package segment

import(
	"container/heap"
	"image"

	"starphot/pkg/pgrid"
)

// Watershed flood fill: basins grow outward from seeds in descending
// flux order, so each foreground pixel joins the basin that reaches
// it first "downhill". Ties are broken toward the lower seed index,
// then toward the lower row-major pixel, making the transform fully
// deterministic.

type floodItem struct {
	flux  float64
	label int32
	x, y  int
}

type floodHeap []floodItem

func (fh floodHeap)Len() int      { return len(fh) }
func (fh floodHeap)Swap(i, j int) { fh[i], fh[j] = fh[j], fh[i] }
func (fh floodHeap)Less(i, j int) bool {
	a, b := fh[i], fh[j]
	if a.flux != b.flux   { return a.flux > b.flux }
	if a.label != b.label { return a.label < b.label }
	if a.y != b.y         { return a.y < b.y }
	return a.x < b.x
}
func (fh *floodHeap)Push(v any) { *fh = append(*fh, v.(floodItem)) }
func (fh *floodHeap)Pop() any {
	old := *fh
	n := len(old)
	v := old[n-1]
	*fh = old[:n-1]
	return v
}

// watershedRegion floods the extended patch `ext` from the given
// seeds (global seed index i carries label i+1). Returns ext-local
// labels, stride ext.Dx().
func watershedRegion(g *pgrid.Grid, fg []bool, seeds []seedPoint, ext image.Rectangle) []int32 {
	w := g.Dx()
	ew := ext.Dx()
	labels := make([]int32, ext.Dx()*ext.Dy())

	fh := floodHeap{}
	for i, s := range seeds {
		if !image.Pt(s.x, s.y).In(ext) { continue }
		heap.Push(&fh, floodItem{g.Get(s.x, s.y), int32(i + 1), s.x, s.y})
	}

	for fh.Len() > 0 {
		it := heap.Pop(&fh).(floodItem)
		li := (it.y-ext.Min.Y)*ew + (it.x - ext.Min.X)
		if labels[li] != 0 { continue }
		labels[li] = it.label

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 { continue }
				nx, ny := it.x+dx, it.y+dy
				if !image.Pt(nx, ny).In(ext) { continue }
				if !fg[ny*w+nx] { continue }
				if labels[(ny-ext.Min.Y)*ew+(nx-ext.Min.X)] != 0 { continue }
				heap.Push(&fh, floodItem{g.Get(nx, ny), it.label, nx, ny})
			}
		}
	}
	return labels
}
