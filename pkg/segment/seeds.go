package segment

import(
	"starphot/pkg/pgrid"
)

// noiseFloor is the flux threshold separating star pixels from sky:
// the histogram mode of the cleaned pixel distribution plus a
// multiple of the MAD. Cleaned frames cluster tightly around zero, so
// the mode tracks the sky level and the MAD the noise scale.
func noiseFloor(vals []float64, bins int, madScale float64) float64 {
	return pgrid.HistogramMode(vals, bins) + madScale*pgrid.MAD(vals)
}

type seedPoint struct {
	x, y int
}

// findSeeds returns the 3x3 local maxima of the foreground, in
// row-major order. Plateaus of equal flux yield exactly one seed (the
// lexicographically first pixel), which keeps seed indices - and
// therefore every downstream tie-break - deterministic.
func findSeeds(g *pgrid.Grid, fg []bool) []seedPoint {
	w, h := g.Dx(), g.Dy()
	seeds := []seedPoint{}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !fg[y*w+x] { continue }
			v := g.Get(x, y)
			isMax := true
			for dy := -1; dy <= 1 && isMax; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 { continue }
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h { continue }
					nv := g.Get(nx, ny)
					if nv > v || (nv == v && (ny < y || (ny == y && nx < x))) {
						isMax = false
						break
					}
				}
			}
			if isMax {
				seeds = append(seeds, seedPoint{x, y})
			}
		}
	}
	return seeds
}
