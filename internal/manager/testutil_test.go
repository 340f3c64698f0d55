package manager

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/engine"
	"upscaled/internal/imageio"
)

// fakeEngine upscales by emitting a flat RGB buffer of the expected size.
type fakeEngine struct {
	scale  int
	gate   chan struct{} // when set, Upscale blocks until closed
	errs   []error       // consumed one per call
	mangle func(engine.RawPixels) engine.RawPixels
	calls  atomic.Int32
	closed atomic.Bool
	mu     sync.Mutex
}

func (f *fakeEngine) Scale() int { return f.scale }

func (f *fakeEngine) Upscale(ctx context.Context, content []byte) (engine.RawPixels, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return engine.RawPixels{}, ctx.Err()
		}
	}
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		if err != nil {
			return engine.RawPixels{}, err
		}
	} else {
		f.mu.Unlock()
	}
	img, err := imageio.Inspect(content, "", imageio.Limits{})
	if err != nil {
		return engine.RawPixels{}, err
	}
	time.Sleep(time.Millisecond)
	w, h := img.Width*f.scale, img.Height*f.scale
	px := engine.RawPixels{Width: w, Height: h, Channels: 3, Data: make([]byte, w*h*3)}
	if f.mangle != nil {
		px = f.mangle(px)
	}
	return px, nil
}

func (f *fakeEngine) Close() error {
	f.closed.Store(true)
	return nil
}

// fakeCtor builds fakeEngines. Per-model gates hold Construct until closed;
// per-model errors fail it.
type fakeCtor struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	errs     map[string]error
	noAccel  bool
	progress []engine.Progress
	engines  []*fakeEngine
	calls    []engine.Options
	newEng   func(modelID string) *fakeEngine
}

func newFakeCtor() *fakeCtor {
	return &fakeCtor{gates: map[string]chan struct{}{}, errs: map[string]error{}}
}

func (c *fakeCtor) Construct(ctx context.Context, modelID string, opts engine.Options) (engine.Engine, error) {
	c.mu.Lock()
	c.calls = append(c.calls, opts)
	gate := c.gates[modelID]
	err := c.errs[modelID]
	noAccel := c.noAccel
	progress := append([]engine.Progress(nil), c.progress...)
	c.mu.Unlock()
	if noAccel && opts.Backend == engine.BackendPreferredHardware {
		return nil, engine.ErrBackendUnavailable
	}
	for _, p := range progress {
		if opts.Progress != nil {
			opts.Progress(p)
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	var e *fakeEngine
	if c.newEng != nil {
		e = c.newEng(modelID)
	} else {
		e = &fakeEngine{scale: scaleFor(modelID)}
	}
	c.mu.Lock()
	c.engines = append(c.engines, e)
	c.mu.Unlock()
	return e, nil
}

func (c *fakeCtor) gate(modelID string) chan struct{} {
	ch := make(chan struct{})
	c.mu.Lock()
	c.gates[modelID] = ch
	c.mu.Unlock()
	return ch
}

func (c *fakeCtor) built() []*fakeEngine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeEngine(nil), c.engines...)
}

func (c *fakeCtor) constructCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

const (
	model2x = "Xenova/swin2SR-classical-sr-x2-64"
	model4x = "Xenova/swin2SR-classical-sr-x4-64"
)

func scaleFor(id string) int {
	if id == model2x {
		return 2
	}
	return 4
}

func newTestManager(t *testing.T, ctor engine.Constructor) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{Constructor: ctor, Publisher: pub, Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = m.Close() })
	return m, pub
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func hasEvent(pub *MemoryPublisher, name string) bool {
	for _, n := range pub.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func mustLoad(t *testing.T, m *Manager, id string) {
	t.Helper()
	if err := m.SelectModel(id); err != nil {
		t.Fatalf("SelectModel(%s): %v", id, err)
	}
	if err := m.Loaded(testCtx(t)); err != nil {
		t.Fatalf("Loaded(%s): %v", id, err)
	}
}
