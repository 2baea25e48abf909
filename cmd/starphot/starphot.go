package main

import(
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"starphot/pkg/pipeline"
	"starphot/pkg/render"
	"starphot/pkg/stario"
)

var(
	fConfigFilename string
	fOutputDir string
	fVerbosity int
	fWorkers int
	fGlowModel string
	fRenderLabels bool
	fRenderCleaned string
)

func init() {
	flag.StringVar(&fConfigFilename, "c", "", "name of YAML config file (flags override it)")
	flag.StringVar(&fOutputDir, "o", "out", "directory for run outputs")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.IntVar(&fWorkers, "workers", 0, "frame workers per run, 0 = auto")
	flag.StringVar(&fGlowModel, "glowmodel", "", "corner glow falloff model: radial, diagonal, off")
	flag.BoolVar(&fRenderLabels, "renderlabels", false, "write a PNG of each frame's aperture map")
	flag.StringVar(&fRenderCleaned, "rendercleaned", "", "write cleaned frames as images: png, hdr, tiff")
	flag.Parse()

	log.Printf("starphot starting\n")
}

func main() {
	cfg := pipeline.NewConfig()
	if fConfigFilename != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(fConfigFilename); err != nil {
			log.Fatal(err)
		}
	}

	// Override the config file with command line args, if relevant
	if fWorkers > 0 { cfg.Workers = fWorkers }
	if fGlowModel != "" { cfg.Background.GlowModel = fGlowModel }
	if fVerbosity > 0 { cfg.Verbosity = fVerbosity }

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Ctrl-C abandons the current run between frames.
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Printf("interrupted, abandoning\n")
		close(done)
	}()

	if flag.NArg() == 0 {
		log.Fatal("usage: starphot [flags] seriesdir [seriesdir ...]")
	}

	for _, dir := range flag.Args() {
		if err := runSeriesDir(runner, dir, done); err != nil {
			log.Fatalf("series '%s': %v\n", dir, err)
		}
	}
}

func runSeriesDir(runner *pipeline.Runner, dir string, done <-chan struct{}) error {
	frames, err := stario.ReadSeriesDir(dir)
	if err != nil {
		return err
	}

	res, err := runner.RunSeries(frames, done)
	if err != nil {
		return err
	}

	outDir := filepath.Join(fOutputDir, res.RunID)
	if err := stario.WriteSeriesResult(outDir, res); err != nil {
		return err
	}
	log.Printf("run %s: %d apertures, %d curves, written to '%s'\n",
		res.RunID, len(res.Catalogue.Apertures), len(res.Curves), outDir)
	log.Printf("%s", res.Stats)

	if fRenderLabels {
		for i, lm := range res.Labels {
			title := fmt.Sprintf("%s frame %d", res.Cleaned[i].Meta, i)
			fn := filepath.Join(outDir, fmt.Sprintf("labels-%04d.png", i))
			if err := render.LabelMapPNG(lm, title, fn); err != nil {
				return err
			}
		}
	}

	switch fRenderCleaned {
	case "":
	case "png":
		for i, cf := range res.Cleaned {
			title := fmt.Sprintf("%s cleaned", cf.Meta)
			fn := filepath.Join(outDir, fmt.Sprintf("cleaned-%04d.png", i))
			if err := cf.Pix.ToImg(title, fn); err != nil {
				return err
			}
		}
	case "hdr":
		for i, cf := range res.Cleaned {
			fn := filepath.Join(outDir, fmt.Sprintf("cleaned-%04d.hdr", i))
			if err := render.CleanedFrameHDR(cf, fn); err != nil {
				return err
			}
		}
	case "tiff":
		for i, cf := range res.Cleaned {
			fn := filepath.Join(outDir, fmt.Sprintf("cleaned-%04d.tiff", i))
			if err := render.CleanedFrameTIFF(cf, fn); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown render format '%s'", fRenderCleaned)
	}

	return nil
}
