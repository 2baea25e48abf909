package synth

import(
	"math"

	"github.com/valyala/fastrand"

	"starphot/pkg/frame"
	"starphot/pkg/pgrid"
)

// Synthetic frame generation for tests and demo runs: Gaussian stars
// on a configurable sky (constant level, linear gradient, corner
// glow, Gaussian noise).

// A Star is a point source rendered as a 2D Gaussian whose pixel sum
// approximates Flux.
type Star struct {
	X, Y  float64
	Flux  float64
	Sigma float64
}

// Options describes the synthetic sky. Zero everything for a black
// frame with just the stars.
type Options struct {
	Width, Height int

	Background float64 // constant sky level
	GradientX  float64 // added per pixel of x
	GradientY  float64 // added per pixel of y

	GlowAmp   float64      // peak extra signal at the glow corner
	GlowScale float64      // e-folding distance of the glow, px
	GlowAt    frame.Corner

	NoiseSigma float64
	Seed       uint32
}

// Frame renders a synthetic frame for the given metadata.
func Frame(meta frame.Meta, opts Options, stars []Star) *frame.Frame {
	g := pgrid.New(opts.Width, opts.Height)

	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			v := opts.Background + float64(x)*opts.GradientX + float64(y)*opts.GradientY
			g.Set(x, y, v)
		}
	}

	if opts.GlowAmp != 0 && opts.GlowAt != frame.CornerNone {
		gx, gy := opts.GlowAt.XY(opts.Width, opts.Height)
		scale := opts.GlowScale
		if scale <= 0 { scale = float64(opts.Width) / 6.0 }
		for y := 0; y < opts.Height; y++ {
			for x := 0; x < opts.Width; x++ {
				dx, dy := float64(x-gx), float64(y-gy)
				d := math.Sqrt(dx*dx + dy*dy)
				g.Set(x, y, g.Get(x, y)+opts.GlowAmp*math.Exp(-d/scale))
			}
		}
	}

	for _, s := range stars {
		addStar(g, s)
	}

	if opts.NoiseSigma > 0 {
		gn := newGaussianNoise(opts.Seed)
		for y := 0; y < opts.Height; y++ {
			for x := 0; x < opts.Width; x++ {
				g.Set(x, y, g.Get(x, y)+opts.NoiseSigma*gn.next())
			}
		}
	}

	return frame.New(meta, g)
}

// addStar adds a normalized Gaussian, truncated at 6 sigma where the
// remaining tail is negligible.
func addStar(g *pgrid.Grid, s Star) {
	r := int(math.Ceil(6 * s.Sigma))
	norm := s.Flux / (2 * math.Pi * s.Sigma * s.Sigma)
	x0, x1 := int(s.X)-r, int(s.X)+r
	y0, y1 := int(s.Y)-r, int(s.Y)+r

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if !g.InBounds(x, y) { continue }
			dx, dy := float64(x)-s.X, float64(y)-s.Y
			g.Set(x, y, g.Get(x, y)+norm*math.Exp(-(dx*dx+dy*dy)/(2*s.Sigma*s.Sigma)))
		}
	}
}

// gaussianNoise draws N(0,1) variates from a seeded fast RNG via
// Box-Muller, so synthetic frames are reproducible.
type gaussianNoise struct {
	rng   fastrand.RNG
	spare float64
	has   bool
}

func newGaussianNoise(seed uint32) *gaussianNoise {
	gn := gaussianNoise{}
	if seed == 0 { seed = 1 }
	gn.rng.Seed(seed)
	return &gn
}

func (gn *gaussianNoise)uniform() float64 {
	return (float64(gn.rng.Uint32()) + 0.5) / 4294967296.0
}

func (gn *gaussianNoise)next() float64 {
	if gn.has {
		gn.has = false
		return gn.spare
	}
	u1, u2 := gn.uniform(), gn.uniform()
	r := math.Sqrt(-2 * math.Log(u1))
	gn.spare = r * math.Sin(2*math.Pi*u2)
	gn.has = true
	return r * math.Cos(2*math.Pi*u2)
}
