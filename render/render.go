// Package render turns a scene into an image by recursive ray tracing.
package render

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"r3trace/r2image"
	"r3trace/sampleimage"
	"r3trace/scene"
	"r3trace/vmath/vec2"
)

var ErrInvalidOptions = errors.New("invalid render options")

type Options struct {
	Width  int
	Height int

	// Number of reflection/refraction bounces after the primary hit.  0 renders
	// direct lighting only.
	MaxDepth int

	NumPrimaryRaysPerPixel int

	// Shadow rays per area light per intersection.
	NumDistributedRaysPerIntersection int

	Seed int64

	// Rows rendered concurrently.  0 means runtime.NumCPU().
	Workers int

	// Called after each finished row.  Calls are serialized.
	Progress func(done, total int)
}

func (o *Options) Validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidOptions, o.Width, o.Height)
	case o.Width > sampleimage.MaxDimension || o.Height > sampleimage.MaxDimension:
		return fmt.Errorf("%w: image size %dx%d exceeds %d on a side", ErrInvalidOptions, o.Width, o.Height, sampleimage.MaxDimension)
	case o.MaxDepth < 0:
		return fmt.Errorf("%w: max depth %d", ErrInvalidOptions, o.MaxDepth)
	case o.NumPrimaryRaysPerPixel < 1:
		return fmt.Errorf("%w: %d primary rays per pixel", ErrInvalidOptions, o.NumPrimaryRaysPerPixel)
	case o.NumDistributedRaysPerIntersection < 1:
		return fmt.Errorf("%w: %d distributed rays per intersection", ErrInvalidOptions, o.NumDistributedRaysPerIntersection)
	case o.Workers < 0:
		return fmt.Errorf("%w: %d workers", ErrInvalidOptions, o.Workers)
	}
	return nil
}

// RenderImage renders s from its camera.
func RenderImage(ctx context.Context, s *scene.Scene, opts Options) (*r2image.Image, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil scene", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	samples := sampleimage.New(opts.Height, opts.Width)
	if err := RenderSamples(ctx, s, opts, samples); err != nil {
		return nil, err
	}
	return samples.Resolve(), nil
}

// RenderImageSimple renders with a fixed seed and one worker per CPU.
func RenderImageSimple(s *scene.Scene, width, height, maxDepth, numPrimaryRaysPerPixel, numDistributedRaysPerIntersection int) (*r2image.Image, error) {
	return RenderImage(context.Background(), s, Options{
		Width:                             width,
		Height:                            height,
		MaxDepth:                          maxDepth,
		NumPrimaryRaysPerPixel:            numPrimaryRaysPerPixel,
		NumDistributedRaysPerIntersection: numDistributedRaysPerIntersection,
	})
}

// rowSeed derives the random stream for one row.  It depends on how many
// samples the row already holds so that a resumed render draws fresh samples.
func rowSeed(seed int64, row, have int) int64 {
	z := uint64(seed) + 0x9e3779b97f4a7c15*uint64(row+1) + 0xbf58476d1ce4e5b9*uint64(have)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// RenderSamples tops up every pixel of samples to opts.NumPrimaryRaysPerPixel
// samples.  samples must match the requested image size.
func RenderSamples(ctx context.Context, s *scene.Scene, opts Options, samples *sampleimage.SampleImage) (err error) {
	if s == nil {
		return fmt.Errorf("%w: nil scene", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if samples.Rows != opts.Height || samples.Cols != opts.Width {
		return fmt.Errorf("%w: sample buffer is %dx%d, image is %dx%d", ErrInvalidOptions, samples.Cols, samples.Rows, opts.Width, opts.Height)
	}

	tracer := otel.Tracer("r3trace/render")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "RenderSamples", trace.WithAttributes(
		attribute.Int("width", opts.Width),
		attribute.Int("height", opts.Height),
		attribute.Int("max_depth", opts.MaxDepth),
		attribute.Int("primary_rays", opts.NumPrimaryRaysPerPixel),
		attribute.Int("distributed_rays", opts.NumDistributedRaysPerIntersection),
	))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if !s.IsPrepared() {
		s.Prepare()
	}

	workers := opts.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	var progressMu sync.Mutex
	done := 0

	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(workers))

	for row := 0; row < opts.Height; row++ {
		row := row

		if err := sem.Acquire(egCtx, 1); err != nil {
			break
		}

		eg.Go(func() error {
			defer sem.Release(1)

			if err := egCtx.Err(); err != nil {
				return err
			}

			chunk := samples.Cut(row, row+1, 0, opts.Width)
			rt := &rayTracer{
				scene: s,
				opts:  &opts,
				rng:   rand.New(rand.NewSource(rowSeed(opts.Seed, row, chunk.Count(0, 0)))),
			}
			for col := 0; col < opts.Width; col++ {
				if err := egCtx.Err(); err != nil {
					return err
				}
				for chunk.Count(0, col) < opts.NumPrimaryRaysPerPixel {
					jitter := vec2.T{0.5, 0.5}
					if opts.NumPrimaryRaysPerPixel > 1 {
						jitter = vec2.T{rt.rng.Float64(), rt.rng.Float64()}
					}
					r := s.Camera.ImageToRay(row, opts.Height, col, opts.Width, jitter)
					chunk.RecordSample(0, col, rt.trace(r, 0))
				}
			}

			progressMu.Lock()
			defer progressMu.Unlock()
			samples.Paste(chunk, row, 0)
			done++
			if opts.Progress != nil {
				opts.Progress(done, opts.Height)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("while rendering rows: %w", err)
	}
	return ctx.Err()
}
