// renderer renders a scene file to an image.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"r3trace/imagesink"
	"r3trace/r2image"
	"r3trace/render"
	"r3trace/sampleimage"
	"r3trace/scenefile"
)

var (
	inputFile  = flag.String("input-file", "", "Scene file to render")
	outputFile = flag.String("output-file", "output.png", "Output image; the extension picks the format")
	width      = flag.Int("width", 768, "Output image columns")
	height     = flag.Int("height", 512, "Output image rows")

	maxDepth        = flag.Int("max-depth", 5, "Maximum number of reflection and refraction bounces")
	primaryRays     = flag.Int("primary-rays", 1, "Rays averaged per pixel")
	distributedRays = flag.Int("distributed-rays", 1, "Shadow rays per area light per intersection")
	seed            = flag.Int64("seed", 0, "Random seed")
	workers         = flag.Int("workers", 0, "Rows rendered concurrently; 0 means one per CPU")

	samplesFile = flag.String("samples-file", "", "Optional sample buffer to write alongside the image")
	resume      = flag.Bool("resume", false, "Should we re-open -samples-file to add more samples?")

	upload = flag.String("upload", "", "Optional gs://bucket/prefix, s3://bucket/prefix or directory to publish the image to")

	cpuprofile = flag.String("cpu-profile", "", "write cpu profile to `file`")
	memprofile = flag.String("mem-profile", "", "write memory profile to `file`")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			glog.Fatalf("Could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			glog.Fatalf("Could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := do(ctx); err != nil {
		glog.Errorf("Error: %v", err)
		glog.Flush()
		os.Exit(1)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			glog.Fatalf("Could not create memory profile: %v", err)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			glog.Fatalf("Could not write memory profile: %v", err)
		}
	}
}

func progressReporter() func(done, total int) {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r%d/%d %d%%", done, total, 100*done/total)
			if done == total {
				fmt.Fprintf(os.Stderr, "\n")
			}
		}
	}

	lastDecile := -1
	return func(done, total int) {
		if decile := 10 * done / total; decile != lastDecile {
			lastDecile = decile
			glog.Infof("Rendered %d/%d rows", done, total)
		}
	}
}

func loadSamples() (*sampleimage.SampleImage, error) {
	if !*resume {
		if *samplesFile != "" {
			// Avoid blowing away hours of render time.
			if _, err := os.Stat(*samplesFile); err == nil {
				return nil, fmt.Errorf("resumption not requested, but samples file %s exists", *samplesFile)
			}
		}
		return sampleimage.New(*height, *width), nil
	}

	if *samplesFile == "" {
		return nil, fmt.Errorf("-resume requires -samples-file")
	}
	samples, err := sampleimage.ReadSampleImageFromFile(*samplesFile)
	if err != nil {
		return nil, fmt.Errorf("resumption requested, but encountered error loading existing file: %w", err)
	}
	if samples.Rows != *height || samples.Cols != *width {
		return nil, fmt.Errorf("resumption requested, but the existing samples are %dx%d, want %dx%d", samples.Cols, samples.Rows, *width, *height)
	}
	return samples, nil
}

func do(ctx context.Context) error {
	if *inputFile == "" {
		return fmt.Errorf("-input-file is required")
	}
	format, err := r2image.FormatFromPath(*outputFile)
	if err != nil {
		return fmt.Errorf("while checking -output-file: %w", err)
	}

	s, err := scenefile.Load(*inputFile)
	if err != nil {
		return fmt.Errorf("while loading scene: %w", err)
	}
	glog.Infof("Loaded %s: %d elements, %d lights", *inputFile, s.NumElements(), len(s.Lights))

	opts := render.Options{
		Width:                             *width,
		Height:                            *height,
		MaxDepth:                          *maxDepth,
		NumPrimaryRaysPerPixel:            *primaryRays,
		NumDistributedRaysPerIntersection: *distributedRays,
		Seed:                              *seed,
		Workers:                           *workers,
		Progress:                          progressReporter(),
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	samples, err := loadSamples()
	if err != nil {
		return err
	}

	start := time.Now()
	err = render.RenderSamples(ctx, s, opts, samples)

	// Finished rows are worth keeping even if the render was interrupted.
	if *samplesFile != "" {
		if werr := sampleimage.WriteSampleImageToFile(samples, *samplesFile); werr != nil {
			glog.Errorf("Error while writing samples: %v", werr)
		}
	}
	if errors.Is(err, context.Canceled) {
		glog.Warningf("Render cancelled")
	}
	if err != nil {
		return fmt.Errorf("while rendering: %w", err)
	}
	glog.Infof("Rendered in %v", time.Since(start))

	im := samples.Resolve()
	if err := im.WriteFile(*outputFile); err != nil {
		return err
	}

	if *upload != "" {
		// Credentials for s3:// may come from a .env file next to the scene.
		_ = godotenv.Load(filepath.Join(filepath.Dir(*inputFile), ".env"))

		sink, err := imagesink.Open(ctx, *upload, imagesink.S3ConfigFromEnv())
		if err != nil {
			return err
		}
		buf := &bytes.Buffer{}
		if err := im.Encode(buf, format); err != nil {
			return fmt.Errorf("while encoding image: %w", err)
		}
		url, err := sink.Put(ctx, filepath.Base(*outputFile), r2image.ContentType(format), buf.Bytes())
		if err != nil {
			return fmt.Errorf("while uploading image: %w", err)
		}
		glog.Infof("Published %s", url)
	}

	return nil
}
