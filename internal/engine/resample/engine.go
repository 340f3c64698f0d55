// Package resample is the reference inference engine. Each model's manifest
// selects a reconstruction kernel and optional denoise and sharpen passes;
// output is RGB at the manifest scale.
package resample

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"upscaled/internal/engine"
	"upscaled/internal/engine/artifact"
	"upscaled/internal/imageio"
)

// ErrClosed is returned by Upscale after Close.
var ErrClosed = errors.New("engine closed")

// Fetcher resolves model artifacts. *artifact.Cache implements it.
type Fetcher interface {
	Get(ctx context.Context, modelID, file string, progress artifact.ProgressFunc) ([]byte, bool, error)
}

// Constructor builds resample engines from manifests served by a Fetcher.
type Constructor struct {
	fetch   Fetcher
	workers int
	log     zerolog.Logger
}

// NewConstructor returns a Constructor. workers sizes the band pool of the
// accelerated backend; fewer than two makes that backend unavailable.
func NewConstructor(f Fetcher, workers int, log zerolog.Logger) *Constructor {
	return &Constructor{fetch: f, workers: workers, log: log}
}

func (c *Constructor) Construct(ctx context.Context, modelID string, opts engine.Options) (engine.Engine, error) {
	if opts.Backend == "" {
		opts.Backend = engine.BackendPreferredHardware
	}
	if opts.Backend == engine.BackendPreferredHardware && c.workers < 2 {
		return nil, engine.ErrBackendUnavailable
	}
	report := opts.Progress
	if report == nil {
		report = func(engine.Progress) {}
	}
	b, hit, err := c.fetch.Get(ctx, modelID, ManifestFile, func(loaded, total int64) {
		p := engine.Progress{Status: engine.StatusDownload, File: ManifestFile, Loaded: loaded, Total: total}
		if total > 0 {
			p.Fraction = float64(loaded) / float64(total)
			p.HasFraction = true
		}
		report(p)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ManifestFile, err)
	}
	report(engine.Progress{Status: engine.StatusDone, File: ManifestFile})
	report(engine.Progress{Status: engine.StatusInitiate, File: ManifestFile})
	m, err := ParseManifest(modelID, b)
	if err != nil {
		return nil, err
	}
	e := &Engine{m: m, log: c.log.With().Str("model", modelID).Logger()}
	if opts.Backend == engine.BackendPreferredHardware {
		e.pool = workerpool.New(c.workers)
		e.workers = c.workers
	}
	c.log.Debug().Str("model", modelID).Str("backend", string(opts.Backend)).Bool("cache_hit", hit).
		Str("kernel", m.Kernel).Int("scale", m.Scale).Msg("engine constructed")
	return e, nil
}

// Engine is a loaded resample model.
type Engine struct {
	m       Manifest
	log     zerolog.Logger
	pool    *workerpool.WorkerPool
	workers int
	closed  atomic.Bool
}

func (e *Engine) Scale() int { return e.m.Scale }

func (e *Engine) Upscale(ctx context.Context, content []byte) (engine.RawPixels, error) {
	if e.closed.Load() {
		return engine.RawPixels{}, ErrClosed
	}
	src, err := imageio.Decode(content)
	if err != nil {
		return engine.RawPixels{}, err
	}
	if e.m.DenoiseSigma > 0 {
		src = blur.Gaussian(src, e.m.DenoiseSigma)
	}
	if err := ctx.Err(); err != nil {
		return engine.RawPixels{}, err
	}
	b := src.Bounds()
	w, h := b.Dx()*e.m.Scale, b.Dy()*e.m.Scale
	var out *image.RGBA
	if e.m.bandable() {
		out = image.NewRGBA(image.Rect(0, 0, w, h))
		if err := e.render(ctx, out, src); err != nil {
			return engine.RawPixels{}, err
		}
	} else {
		out = transform.Resize(src, w, h, transform.Lanczos)
	}
	if e.m.Sharpen {
		out = effect.Sharpen(out)
	}
	if err := ctx.Err(); err != nil {
		return engine.RawPixels{}, err
	}
	return toRGB(out), nil
}

// render fills dst from src with the manifest kernel, splitting dst into row
// bands across the pool when one is present.
func (e *Engine) render(ctx context.Context, dst *image.RGBA, src image.Image) error {
	interp := interpolators[e.m.Kernel]
	s := float64(e.m.Scale)
	sb := src.Bounds()
	// dst = s*(src - origin)
	s2d := f64.Aff3{s, 0, -s * float64(sb.Min.X), 0, s, -s * float64(sb.Min.Y)}
	db := dst.Bounds()
	if e.pool == nil || db.Dy() < e.workers {
		interp.Transform(dst, s2d, src, sb, draw.Src, nil)
		return nil
	}
	step := (db.Dy() + e.workers - 1) / e.workers
	var wg sync.WaitGroup
	for y := db.Min.Y; y < db.Max.Y; y += step {
		band := image.Rect(db.Min.X, y, db.Max.X, min(y+step, db.Max.Y))
		wg.Add(1)
		e.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			interp.Transform(dst.SubImage(band).(*image.RGBA), s2d, src, sb, draw.Src, nil)
		})
	}
	wg.Wait()
	return ctx.Err()
}

// Close stops the band pool. It is safe to call more than once.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.pool != nil {
		e.pool.StopWait()
	}
	return nil
}

// toRGB drops alpha. Translucent pixels keep their premultiplied values,
// i.e. they come out composited over black.
func toRGB(img *image.RGBA) engine.RawPixels {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < w; x++ {
			data = append(data, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return engine.RawPixels{Width: w, Height: h, Channels: 3, Data: data}
}
