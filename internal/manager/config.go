package manager

import (
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/assets"
	"upscaled/internal/engine"
	"upscaled/internal/imageio"
	"upscaled/internal/registry"
	"upscaled/internal/render"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultInferTimeout = 120 * time.Second
	defaultLoadTimeout  = 300 * time.Second
	defaultMaxPixels    = 4096 * 4096
)

// ArtifactEvicter drops cached artifacts of a model. *artifact.Cache
// implements it.
type ArtifactEvicter interface {
	Forget(modelID string)
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Catalog     *registry.Catalog
	Constructor engine.Constructor
	Backend     engine.Backend
	// Timeouts; a negative value disables the bound, zero selects the default.
	LoadTimeout  time.Duration
	InferTimeout time.Duration
	MaxPixels    int
	Encoder      render.Encoder
	Assets       *assets.Store
	Publisher    EventPublisher
	// Artifacts, when set, is purged for the model on Reload so the next
	// load refetches from the source.
	Artifacts ArtifactEvicter
	Logger    zerolog.Logger
	// Now is the clock used for download names; defaults to time.Now.
	Now func() time.Time
}

func durationOrDefault(d, def time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case d == 0:
		return def
	}
	return d
}

// NewWithConfig constructs a Manager from ManagerConfig. The session starts
// idle; call SelectModel to begin the first load.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.Catalog == nil {
		cfg.Catalog = registry.Default()
	}
	if cfg.Assets == nil {
		cfg.Assets = assets.NewStore()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxPixels == 0 {
		cfg.MaxPixels = defaultMaxPixels
	}
	if cfg.Encoder.Format == "" {
		cfg.Encoder.Format = render.FormatJPEG
	}
	if cfg.Encoder.Quality == 0 {
		cfg.Encoder.Quality = render.DefaultJPEGQuality
	}
	log := cfg.Logger.With().Str("component", "manager").Logger()
	m := &Manager{
		state:     StateIdle,
		catalog:   cfg.Catalog,
		loader:    NewLoader(cfg.Constructor, cfg.Catalog, cfg.Backend, durationOrDefault(cfg.LoadTimeout, defaultLoadTimeout), cfg.Logger.With().Str("component", "loader").Logger()),
		exec:      NewExecutor(durationOrDefault(cfg.InferTimeout, defaultInferTimeout)),
		enc:       cfg.Encoder,
		limits:    imageio.Limits{MaxPixels: cfg.MaxPixels},
		assets:    cfg.Assets,
		pub:       cfg.Publisher,
		artifacts: cfg.Artifacts,
		log:       log,
		now:       cfg.Now,
		runSlot:   make(chan struct{}, 1),
		startTime: time.Now(),
	}
	if m.limits.MaxPixels < 0 {
		m.limits.MaxPixels = 0
	}
	return m
}
