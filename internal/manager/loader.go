package manager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/engine"
	"upscaled/internal/registry"
)

// Loader acquires engine handles for catalog models.
type Loader struct {
	ctor    engine.Constructor
	catalog *registry.Catalog
	backend engine.Backend
	timeout time.Duration
	log     zerolog.Logger
}

// NewLoader returns a Loader. A zero timeout leaves loads unbounded.
func NewLoader(ctor engine.Constructor, catalog *registry.Catalog, backend engine.Backend, timeout time.Duration, log zerolog.Logger) *Loader {
	if backend == "" {
		backend = engine.BackendPreferredHardware
	}
	return &Loader{ctor: ctor, catalog: catalog, backend: backend, timeout: timeout, log: log}
}

// Load constructs an engine for model, sending progress to sink. sink may be
// nil; Load never sends after it returns, so the caller may close sink then.
// On failure no handle is returned and any partially built engine is closed.
func (l *Loader) Load(ctx context.Context, model registry.Model, sink chan<- LoadProgress) (*Handle, error) {
	if !l.catalog.Contains(model) {
		return nil, registry.ErrUnknownModel(model.ID)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	emit := func(p LoadProgress) {
		if sink == nil {
			return
		}
		select {
		case sink <- p:
		case <-ctx.Done():
		}
	}
	emit(LoadProgress{Phase: PhaseCheckingCache})

	// Phases only move forward: downloads reported after initiating are dropped.
	last, initiated := 0, false
	opts := engine.Options{
		Backend:   l.backend,
		Precision: engine.PrecisionFull,
		Progress: func(p engine.Progress) {
			switch p.Status {
			case engine.StatusInitiate:
				initiated = true
				emit(LoadProgress{Phase: PhaseInitiating, File: p.File})
			case engine.StatusDownload:
				if initiated {
					return
				}
				lp := LoadProgress{Phase: PhaseDownloading, File: p.File}
				if pct, ok := percentOf(p); ok {
					if pct < last {
						pct = last
					}
					last = pct
					lp.Percent, lp.Known = pct, true
				}
				emit(lp)
			}
		},
	}
	eng, err := l.ctor.Construct(ctx, model.ID, opts)
	if errors.Is(err, engine.ErrBackendUnavailable) && opts.Backend == engine.BackendPreferredHardware {
		l.log.Warn().Str("model", model.ID).Msg("preferred backend unavailable; falling back to software")
		opts.Backend = engine.BackendFallbackSoftware
		eng, err = l.ctor.Construct(ctx, model.ID, opts)
	}
	if err != nil {
		if eng != nil {
			_ = eng.Close()
		}
		return nil, &ModelLoadError{ModelID: model.ID, Err: err}
	}
	if eng == nil {
		return nil, &ModelLoadError{ModelID: model.ID, Err: errors.New("engine constructor returned no engine")}
	}
	if s, ok := eng.(engine.Scaler); ok && s.Scale() != int(model.Scale) {
		_ = eng.Close()
		return nil, &ModelLoadError{ModelID: model.ID, Err: fmt.Errorf("artifact scale %dx does not match declared %s", s.Scale(), model.Scale)}
	}
	emit(LoadProgress{Phase: PhaseReady, Percent: 100, Known: true})
	return &Handle{Model: model, Backend: opts.Backend, LoadedAt: time.Now(), eng: eng}, nil
}

// percentOf converts an engine progress report to a 0..100 percentage.
func percentOf(p engine.Progress) (int, bool) {
	var f float64
	switch {
	case p.HasFraction:
		f = p.Fraction
	case p.Total > 0:
		f = float64(p.Loaded) / float64(p.Total)
	default:
		return 0, false
	}
	pct := int(math.Round(f * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}
