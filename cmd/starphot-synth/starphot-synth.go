package main

import(
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/valyala/fastrand"

	"starphot/pkg/frame"
	"starphot/pkg/stario"
	"starphot/pkg/synth"
)

var(
	fOutputDir string
	fNumFrames int
	fWidth int
	fHeight int
	fCamera int
	fCCD int
	fNumStars int
	fBackground float64
	fGlowAmp float64
	fGlowScale float64
	fNoiseSigma float64
	fCadenceMin int
	fSeed uint
)

func init() {
	flag.StringVar(&fOutputDir, "o", "synthrun", "directory for generated frame files")
	flag.IntVar(&fNumFrames, "n", 16, "number of frames to generate")
	flag.IntVar(&fWidth, "width", 512, "frame width, px")
	flag.IntVar(&fHeight, "height", 512, "frame height, px")
	flag.IntVar(&fCamera, "camera", 1, "camera number for the frame metadata")
	flag.IntVar(&fCCD, "ccd", 1, "CCD number (1-4), picks the glow corner")
	flag.IntVar(&fNumStars, "stars", 40, "number of stars to scatter")
	flag.Float64Var(&fBackground, "background", 100, "constant sky level")
	flag.Float64Var(&fGlowAmp, "glowamp", 50, "peak corner glow signal, 0 for none")
	flag.Float64Var(&fGlowScale, "glowscale", 150, "e-folding distance of the glow, px")
	flag.Float64Var(&fNoiseSigma, "noise", 2, "Gaussian noise sigma")
	flag.UintVar(&fSeed, "seed", 1, "RNG seed, same seed = same sky")
	flag.IntVar(&fCadenceMin, "cadence", 30, "minutes between frames")
	flag.Parse()

	log.Printf("starphot-synth starting\n")
}

func main() {
	glowAt, err := frame.GlowCorner(fCCD)
	if err != nil {
		log.Fatal(err)
	}

	rng := fastrand.RNG{}
	rng.Seed(uint32(fSeed))
	uniform := func() float64 { return float64(rng.Uint32()) / float64(1<<32) }

	stars := make([]synth.Star, 0, fNumStars)
	for i := 0; i < fNumStars; i++ {
		stars = append(stars, synth.Star{
			X:     uniform() * float64(fWidth),
			Y:     uniform() * float64(fHeight),
			Flux:  500 + uniform()*5000,
			Sigma: 1.2 + uniform()*0.8,
		})
	}

	if err := os.MkdirAll(fOutputDir, 0755); err != nil {
		log.Fatal(err)
	}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < fNumFrames; i++ {
		opts := synth.Options{
			Width:      fWidth,
			Height:     fHeight,
			Background: fBackground,
			GlowAmp:    fGlowAmp,
			GlowScale:  fGlowScale,
			GlowAt:     glowAt,
			NoiseSigma: fNoiseSigma,
			Seed:       uint32(fSeed) + uint32(i) + 1,
		}

		// Jiggle the fluxes a little so the curves have some shape.
		frameStars := make([]synth.Star, len(stars))
		copy(frameStars, stars)
		for j := range frameStars {
			frameStars[j].Flux *= 1.0 + 0.02*uniform() - 0.01
		}

		meta := frame.Meta{
			Camera:    fCamera,
			CCD:       fCCD,
			Timestamp: t0.Add(time.Duration(i*fCadenceMin) * time.Minute),
		}
		f := synth.Frame(meta, opts, frameStars)

		fn := filepath.Join(fOutputDir, fmt.Sprintf("frame-%04d%s", i, stario.FrameExt))
		if err := stario.WriteFrame(fn, f); err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("wrote %d frames to '%s'\n", fNumFrames, fOutputDir)
}
