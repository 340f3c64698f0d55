package cli

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/common/fsutil"
	"upscaled/internal/config"
	"upscaled/internal/engine"
	"upscaled/internal/engine/artifact"
	"upscaled/internal/engine/resample"
	"upscaled/internal/manager"
	"upscaled/internal/registry"
	"upscaled/internal/render"
)

// newSource picks the artifact source: a local tree wins over a remote base
// URL, and the embedded manifests are used when neither is set.
func newSource(cfg config.Config) (artifact.Source, error) {
	switch {
	case cfg.ArtifactDir != "":
		dir, err := fsutil.RequireDir(cfg.ArtifactDir)
		if err != nil {
			return nil, err
		}
		return artifact.DirSource{Root: dir}, nil
	case cfg.ArtifactURL != "":
		return artifact.HTTPSource{BaseURL: cfg.ArtifactURL, Client: &http.Client{Timeout: 5 * time.Minute}}, nil
	}
	return artifact.FSSource{FS: resample.Builtin()}, nil
}

func seconds(n int) time.Duration {
	if n < 0 {
		return -1
	}
	return time.Duration(n) * time.Second
}

// newCache builds the artifact cache in front of the configured source.
func newCache(cfg config.Config, log zerolog.Logger) (*artifact.Cache, error) {
	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}
	cacheDir, err := fsutil.ResolveCacheDir(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("cache_dir", cacheDir).Msg("artifact cache")
	return artifact.NewCache(src, cacheDir, log.With().Str("component", "artifact").Logger()), nil
}

// newManager wires config into a session controller backed by the
// resampling engine.
func newManager(cfg config.Config, log zerolog.Logger) (*manager.Manager, error) {
	cache, err := newCache(cfg, log)
	if err != nil {
		return nil, err
	}
	backend, err := engine.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	format, err := render.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	ctor := resample.NewConstructor(cache, cfg.Workers, log.With().Str("component", "engine").Logger())
	log.Debug().Str("backend", string(backend)).Int("workers", cfg.Workers).Msg("session config")
	return manager.NewWithConfig(manager.ManagerConfig{
		Constructor:  ctor,
		Backend:      backend,
		LoadTimeout:  seconds(cfg.LoadTimeoutSeconds),
		InferTimeout: seconds(cfg.InferTimeoutSeconds),
		MaxPixels:    cfg.MaxInputPixels,
		Encoder:      render.Encoder{Format: format, Quality: render.DefaultJPEGQuality},
		Artifacts:    cache,
		Logger:       log,
	}), nil
}

// initialModel resolves the model selected at startup.
func initialModel(cfg config.Config) string {
	if cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	return registry.Default().First().ID
}
