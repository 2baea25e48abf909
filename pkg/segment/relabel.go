package segment

import(
	"sort"
)

// relabelSorted renumbers the surviving labels into a compact 1..K
// range. The remap is an ordered array of the distinct old labels
// plus a binary search per pixel - O(log K) instead of the O(K)
// linear scan a naive lookup would cost on every pixel.
func relabelSorted(labels []int32) {
	distinct := distinctLabels(labels)
	if len(distinct) == 0 { return }

	for i, l := range labels {
		if l == 0 { continue }
		labels[i] = int32(sort.SearchInts(distinct, int(l))) + 1
	}
}

// distinctLabels returns the sorted distinct non-background labels.
func distinctLabels(labels []int32) []int {
	set := map[int32]bool{}
	for _, l := range labels {
		if l != 0 { set[l] = true }
	}
	out := make([]int, 0, len(set))
	for l := range set {
		out = append(out, int(l))
	}
	sort.Ints(out)
	return out
}
