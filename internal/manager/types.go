package manager

import (
	"sync"
	"time"

	"upscaled/internal/engine"
	"upscaled/internal/imageio"
	"upscaled/internal/registry"
)

// State represents the lifecycle state of the session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateRunning State = "running"
	StateError   State = "error"
)

// LoadPhase is the coarse stage of a model load.
type LoadPhase string

const (
	PhaseCheckingCache LoadPhase = "checking-cache"
	PhaseDownloading   LoadPhase = "downloading"
	PhaseInitiating    LoadPhase = "initiating"
	PhaseReady         LoadPhase = "ready"
)

// LoadProgress is a display-only report from the Loader. Percent is only
// meaningful when Known is set.
type LoadProgress struct {
	Phase   LoadPhase
	Percent int
	Known   bool
	File    string
}

// Text renders p as a status line.
func (p LoadProgress) Text() string {
	switch p.Phase {
	case PhaseCheckingCache:
		return "Checking cache..."
	case PhaseDownloading:
		if p.File == "" {
			return "Downloading..."
		}
		return "Downloading " + p.File + "..."
	case PhaseInitiating:
		if p.File == "" {
			return "Loading..."
		}
		return "Loading " + p.File + "..."
	case PhaseReady:
		return "Model ready!"
	}
	return ""
}

// SourceImage is validated user content with its decoded dimensions.
type SourceImage = imageio.Image

// InferenceResult is the raw output of one successful run.
type InferenceResult struct {
	Pixels  engine.RawPixels
	Elapsed time.Duration
}

// RenderableOutput is the encoded asset surfaced after a run.
type RenderableOutput struct {
	AssetID    string
	MIME       string
	Ext        string
	Width      int
	Height     int
	Elapsed    time.Duration
	Scale      registry.Scale
	ModelID    string
	FinishedAt time.Time
}

// Handle is a live engine bound to exactly one catalog model. The session
// owns it exclusively.
type Handle struct {
	Model    registry.Model
	Backend  engine.Backend
	LoadedAt time.Time

	eng       engine.Engine
	closeOnce sync.Once
	closeErr  error
}

// Close releases the engine. Later calls return the first result.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	h.closeOnce.Do(func() {
		if h.eng != nil {
			h.closeErr = h.eng.Close()
		}
	})
	return h.closeErr
}

// Snapshot is a read-only projection of the session state.
type Snapshot struct {
	State       State
	Model       *registry.Model
	Loaded      bool
	Backend     engine.Backend
	Progress    *LoadProgress
	RunProgress int
	Image       *SourceImage
	ImageAsset  string
	Output      *RenderableOutput
	Err         string
	ErrKind     string
	Generation  uint64
}
