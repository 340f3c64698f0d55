package manager

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Executor runs one upscale on a loaded handle. It trusts the caller for
// handle validity and never retries.
type Executor struct {
	timeout time.Duration
}

// NewExecutor returns an Executor. A zero timeout leaves runs unbounded.
func NewExecutor(timeout time.Duration) *Executor { return &Executor{timeout: timeout} }

// Run invokes the engine and measures wall time. Any engine fault is returned
// as an *InferenceError, with no partial result.
func (x *Executor) Run(ctx context.Context, h *Handle, img SourceImage) (res InferenceResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = InferenceResult{}, &InferenceError{Err: fmt.Errorf("engine panic: %v", r)}
		}
	}()
	if h == nil || h.eng == nil {
		return InferenceResult{}, &InferenceError{Err: errors.New("no engine")}
	}
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	start := time.Now()
	px, err := h.eng.Upscale(ctx, img.Content)
	elapsed := time.Since(start)
	if err != nil {
		return InferenceResult{}, &InferenceError{Err: err}
	}
	inferenceDuration.WithLabelValues(h.Model.ID).Observe(elapsed.Seconds())
	return InferenceResult{Pixels: px, Elapsed: elapsed}, nil
}
