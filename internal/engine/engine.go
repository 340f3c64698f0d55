// Package engine defines the contracts between the session core and an
// inference engine: how an engine is constructed for a model id, how it is
// invoked, and the raw pixel output it returns. Concrete engines live in
// subpackages (see resample).
package engine

import (
	"context"
	"errors"
)

// Backend selects the acceleration strategy an engine should use.
type Backend string

const (
	BackendPreferredHardware Backend = "preferred-hardware"
	BackendFallbackSoftware  Backend = "fallback-software"
)

// ParseBackend maps a config string onto a Backend. Empty selects the
// preferred hardware backend.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendPreferredHardware:
		return BackendPreferredHardware, nil
	case BackendFallbackSoftware:
		return BackendFallbackSoftware, nil
	}
	return "", errors.New("unknown backend: " + s)
}

// Precision is the numeric precision requested from the engine.
type Precision string

// PrecisionFull is the only precision the service requests.
const PrecisionFull Precision = "fp32"

// ErrBackendUnavailable is returned by Construct when the requested backend
// cannot run on this host. Callers may retry with BackendFallbackSoftware.
var ErrBackendUnavailable = errors.New("acceleration backend unavailable")

// ProgressStatus is the kind of a raw engine progress report.
type ProgressStatus string

const (
	StatusInitiate ProgressStatus = "initiate"
	StatusDownload ProgressStatus = "download"
	StatusDone     ProgressStatus = "done"
)

// Progress is a raw report from an engine while it loads. Fraction, when
// HasFraction is set, is in [0,1]; otherwise Loaded/Total may carry byte
// counts (Total 0 means unknown).
type Progress struct {
	Status      ProgressStatus
	File        string
	Fraction    float64
	HasFraction bool
	Loaded      int64
	Total       int64
}

// Options configures engine construction.
type Options struct {
	Backend   Backend
	Precision Precision
	// Progress receives load reports. It may be nil. Engines call it from the
	// goroutine running Construct.
	Progress func(Progress)
}

// RawPixels is uncompressed engine output: Width*Height pixels of Channels
// 8-bit samples each, row-major, no padding.
type RawPixels struct {
	Width    int
	Height   int
	Channels int
	Data     []byte
}

// Engine is a loaded model bound to one model id.
type Engine interface {
	// Upscale runs the model on encoded image content.
	Upscale(ctx context.Context, content []byte) (RawPixels, error)
	// Close releases the model. Upscale after Close fails.
	Close() error
}

// Scaler is implemented by engines that can report the magnification their
// loaded artifact performs.
type Scaler interface {
	Scale() int
}

// Constructor builds engines.
type Constructor interface {
	Construct(ctx context.Context, modelID string, opts Options) (Engine, error)
}

// ConstructorFunc adapts a function to Constructor.
type ConstructorFunc func(ctx context.Context, modelID string, opts Options) (Engine, error)

func (f ConstructorFunc) Construct(ctx context.Context, modelID string, opts Options) (Engine, error) {
	return f(ctx, modelID, opts)
}
