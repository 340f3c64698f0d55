package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/assets"
	"upscaled/internal/engine"
	"upscaled/internal/imageio"
	"upscaled/internal/registry"
	"upscaled/internal/render"
)

// Manager is the session controller. It owns the selection, the engine
// handle, the source image and the current output, and is the only place
// that decides whether a run may be dispatched.
type Manager struct {
	mu        sync.RWMutex
	state     State
	catalog   *registry.Catalog
	loader    *Loader
	exec      *Executor
	enc       render.Encoder
	limits    imageio.Limits
	assets    *assets.Store
	pub       EventPublisher
	artifacts ArtifactEvicter
	log       zerolog.Logger
	now       func() time.Time
	runSlot   chan struct{} // size 1: single in-flight run
	startTime time.Time

	// gen is bumped on every selection; a load only installs its handle
	// when the generation it captured is still current.
	gen        uint64
	model      *registry.Model
	handle     *Handle
	progress   *LoadProgress
	loadDone   chan struct{}
	image      *SourceImage
	imageAsset string
	output     *RenderableOutput
	runPct     int
	errMsg     string
	errKind    string
	lastErr    error
	closed     bool

	loads uint64
	runs  uint64
}

// New constructs a Manager over the default catalog.
func New(ctor engine.Constructor, log zerolog.Logger) *Manager {
	return NewWithConfig(ManagerConfig{Constructor: ctor, Logger: log})
}

// SetEventPublisher installs a publisher. Call before issuing commands.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.pub = p
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	m.mu.RLock()
	p := m.pub
	m.mu.RUnlock()
	p.Publish(e)
}

// ListModels returns the catalog in display order.
func (m *Manager) ListModels() []registry.Model { return m.catalog.List() }

// Ready reports whether an engine handle is held.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle != nil && !m.closed
}

// SelectModel discards the current handle and starts loading id in the
// background. Unknown ids are rejected without any state change.
func (m *Manager) SelectModel(id string) error {
	model, err := m.catalog.Find(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return validation(ReasonClosed)
	}
	if m.state == StateRunning {
		m.mu.Unlock()
		return validation(ReasonBusy)
	}
	m.gen++
	gen := m.gen
	old := m.handle
	m.handle = nil
	m.model = &model
	m.state = StateLoading
	m.progress = &LoadProgress{Phase: PhaseCheckingCache}
	m.errMsg, m.errKind, m.lastErr = "", "", nil
	done := make(chan struct{})
	m.loadDone = done
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			m.log.Warn().Err(err).Str("model", old.Model.ID).Msg("close previous engine")
		}
	}
	m.log.Info().Str("event", EventSelectModel).Str("model", id).Uint64("generation", gen).Msg("model selected")
	m.publish(Event{Name: EventSelectModel, ModelID: id, Fields: map[string]any{"generation": gen}})
	go m.load(gen, model, done)
	return nil
}

// Reload discards the current handle and loads the selected model again,
// refetching its artifacts when an artifact cache is configured.
func (m *Manager) Reload() error {
	m.mu.RLock()
	model, closed, running := m.model, m.closed, m.state == StateRunning
	m.mu.RUnlock()
	switch {
	case closed:
		return validation(ReasonClosed)
	case running:
		return validation(ReasonBusy)
	case model == nil:
		return validation(ReasonNoModel)
	}
	if m.artifacts != nil {
		m.artifacts.Forget(model.ID)
	}
	return m.SelectModel(model.ID)
}

func (m *Manager) load(gen uint64, model registry.Model, done chan struct{}) {
	defer close(done)
	start := time.Now()
	sink := make(chan LoadProgress, 16)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for p := range sink {
			m.applyProgress(gen, model.ID, p)
		}
	}()
	h, err := m.loader.Load(context.Background(), model, sink)
	close(sink)
	<-drained
	dur := time.Since(start)

	m.mu.Lock()
	if gen != m.gen || m.closed {
		m.mu.Unlock()
		if h != nil {
			_ = h.Close()
		}
		staleLoadsTotal.Inc()
		loadsTotal.WithLabelValues(model.ID, "stale").Inc()
		m.log.Info().Str("event", EventLoadStale).Str("model", model.ID).Uint64("generation", gen).Msg("discarded stale load")
		m.publish(Event{Name: EventLoadStale, ModelID: model.ID, Fields: map[string]any{"generation": gen}})
		return
	}
	m.loads++
	loadDuration.WithLabelValues(model.ID).Observe(dur.Seconds())
	if err != nil {
		m.state = StateError
		m.progress = nil
		m.errMsg, m.errKind, m.lastErr = UserMessage(err), ErrorKind(err), err
		msg := m.errMsg
		m.mu.Unlock()
		loadsTotal.WithLabelValues(model.ID, "error").Inc()
		m.log.Error().Err(err).Str("event", EventLoadError).Str("model", model.ID).Dur("duration", dur).Msg("model load failed")
		m.publish(Event{Name: EventLoadError, ModelID: model.ID, Fields: map[string]any{"error": msg}})
		return
	}
	m.handle = h
	m.state = StateReady
	m.progress = &LoadProgress{Phase: PhaseReady, Percent: 100, Known: true}
	m.mu.Unlock()
	loadsTotal.WithLabelValues(model.ID, "ready").Inc()
	m.log.Info().Str("event", EventLoadReady).Str("model", model.ID).Str("backend", string(h.Backend)).
		Dur("duration", dur).Msg("model ready")
	m.publish(Event{Name: EventLoadReady, ModelID: model.ID, Fields: map[string]any{"backend": string(h.Backend)}})
}

func (m *Manager) applyProgress(gen uint64, modelID string, p LoadProgress) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateLoading {
		m.mu.Unlock()
		return
	}
	m.progress = &p
	m.mu.Unlock()
	fields := map[string]any{"phase": string(p.Phase), "text": p.Text()}
	if p.Known {
		fields["percent"] = p.Percent
	}
	if p.File != "" {
		fields["file"] = p.File
	}
	m.publish(Event{Name: EventLoadProgress, ModelID: modelID, Fields: fields})
}

// Loaded blocks until no load is in flight, then reports whether a handle
// is held: nil when ready, the load error after a failed load.
func (m *Manager) Loaded(ctx context.Context) error {
	for {
		m.mu.RLock()
		state, done, h, lastErr, closed := m.state, m.loadDone, m.handle, m.lastErr, m.closed
		m.mu.RUnlock()
		if closed {
			return validation(ReasonClosed)
		}
		if state == StateLoading {
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if h != nil {
			return nil
		}
		if lastErr != nil {
			return lastErr
		}
		return validation(ReasonNoModel)
	}
}

// SelectImage validates content and makes it the source image, replacing
// any previous image and output. It is rejected while a run is in flight.
func (m *Manager) SelectImage(content []byte, name string) error {
	img, err := imageio.Inspect(content, name, m.limits)
	if err != nil {
		return &ValidationError{Reason: ReasonInvalidImage, Err: err}
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return validation(ReasonClosed)
	}
	if m.state == StateRunning {
		m.mu.Unlock()
		return validation(ReasonBusy)
	}
	preview := m.assets.Put(content, img.MIME)
	oldImage, oldOutput := m.imageAsset, m.output
	m.image = &img
	m.imageAsset = preview.ID
	m.output = nil
	m.runPct = 0
	m.mu.Unlock()

	m.assets.Revoke(oldImage)
	if oldOutput != nil {
		m.assets.Revoke(oldOutput.AssetID)
	}
	m.log.Debug().Str("event", EventImageSet).Str("mime", img.MIME).Int("width", img.Width).Int("height", img.Height).Msg("image selected")
	m.publish(Event{Name: EventImageSet, Fields: map[string]any{"width": img.Width, "height": img.Height, "mime": img.MIME}})
	return nil
}

// Run executes the current image on the current handle and converts the
// result. Preconditions are checked synchronously; a rejected run changes
// nothing. On failure the handle is kept so Run can be retried.
func (m *Manager) Run(ctx context.Context) (RenderableOutput, error) {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return RenderableOutput{}, validation(ReasonClosed)
	case m.state == StateRunning:
		m.mu.Unlock()
		return RenderableOutput{}, validation(ReasonBusy)
	case m.image == nil:
		m.mu.Unlock()
		return RenderableOutput{}, validation(ReasonNoImage)
	case m.handle == nil:
		st := m.state
		m.mu.Unlock()
		if st == StateLoading {
			return RenderableOutput{}, validation(ReasonStillLoading)
		}
		return RenderableOutput{}, validation(ReasonNoModel)
	}
	release, err := m.tryBeginRun()
	if err != nil {
		m.mu.Unlock()
		return RenderableOutput{}, err
	}
	h, img := m.handle, *m.image
	m.state = StateRunning
	m.runPct = 0
	m.errMsg, m.errKind, m.lastErr = "", "", nil
	m.mu.Unlock()

	m.log.Info().Str("event", EventRunStart).Str("model", h.Model.ID).Int("width", img.Width).Int("height", img.Height).Msg("run started")
	m.publish(Event{Name: EventRunStart, ModelID: h.Model.ID})

	res, err := m.exec.Run(ctx, h, img)
	if err == nil {
		err = checkResult(res.Pixels, img, h.Model.Scale)
	}
	var enc render.Image
	if err == nil {
		enc, err = m.enc.Encode(res.Pixels)
	}
	if err == nil && (enc.Width != res.Pixels.Width || enc.Height != res.Pixels.Height) {
		err = &render.EncodeError{Reason: fmt.Sprintf("encoded %dx%d from %dx%d", enc.Width, enc.Height, res.Pixels.Width, res.Pixels.Height)}
	}
	if err != nil {
		return RenderableOutput{}, m.failRun(h, err, release)
	}

	asset := m.assets.Put(enc.Data, enc.MIME)
	out := RenderableOutput{
		AssetID:    asset.ID,
		MIME:       enc.MIME,
		Ext:        enc.Ext,
		Width:      enc.Width,
		Height:     enc.Height,
		Elapsed:    res.Elapsed,
		Scale:      h.Model.Scale,
		ModelID:    h.Model.ID,
		FinishedAt: m.now(),
	}
	m.mu.Lock()
	if m.closed {
		m.assets.Revoke(asset.ID)
		return RenderableOutput{}, m.abandonRun(h, release)
	}
	old := m.output
	m.output = &out
	m.state = StateReady
	m.runPct = 100
	m.runs++
	release()
	m.mu.Unlock()
	if old != nil {
		m.assets.Revoke(old.AssetID)
	}
	runsTotal.WithLabelValues("ok").Inc()
	m.log.Info().Str("event", EventRunDone).Str("model", h.Model.ID).Int("width", out.Width).Int("height", out.Height).
		Dur("elapsed", out.Elapsed).Msg("run finished")
	m.publish(Event{Name: EventRunDone, ModelID: h.Model.ID, Fields: map[string]any{
		"width": out.Width, "height": out.Height, "elapsed_ms": out.Elapsed.Milliseconds(),
	}})
	return out, nil
}

func (m *Manager) failRun(h *Handle, err error, release func()) error {
	m.mu.Lock()
	if m.closed {
		return m.abandonRun(h, release)
	}
	m.state = StateError
	m.runPct = 0
	m.runs++
	m.errMsg, m.errKind, m.lastErr = UserMessage(err), ErrorKind(err), err
	msg := m.errMsg
	release()
	m.mu.Unlock()
	outcome := "inference_error"
	if render.IsEncodeError(err) {
		outcome = "encode_error"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	m.log.Error().Err(err).Str("event", EventRunError).Str("model", h.Model.ID).Msg("run failed")
	m.publish(Event{Name: EventRunError, ModelID: h.Model.ID, Fields: map[string]any{"error": msg}})
	return err
}

// abandonRun ends a run that outlived Close. Close left the run's handle
// open, so it is closed here once the engine is no longer in use. Must be
// called with m.mu held; it unlocks.
func (m *Manager) abandonRun(h *Handle, release func()) error {
	release()
	m.mu.Unlock()
	runsTotal.WithLabelValues("abandoned").Inc()
	m.log.Warn().Str("event", EventRunError).Str("model", h.Model.ID).Msg("run finished after close; result discarded")
	if err := h.Close(); err != nil {
		m.log.Warn().Err(err).Str("model", h.Model.ID).Msg("close engine")
	}
	return validation(ReasonClosed)
}

// checkResult verifies the raw output is the source scaled by the declared
// factor.
func checkResult(px engine.RawPixels, img SourceImage, s registry.Scale) error {
	w, h := img.Width*int(s), img.Height*int(s)
	if px.Width != w || px.Height != h {
		return &InferenceError{Err: fmt.Errorf("engine returned %dx%d, want %dx%d", px.Width, px.Height, w, h)}
	}
	return nil
}

// Reset clears the image, output, error and run progress. The handle and
// selection are kept and nothing is reloaded.
func (m *Manager) Reset() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return validation(ReasonClosed)
	}
	if m.state == StateRunning {
		m.mu.Unlock()
		return validation(ReasonBusy)
	}
	imageAsset, out := m.imageAsset, m.output
	m.image, m.imageAsset, m.output = nil, "", nil
	m.runPct = 0
	m.errMsg, m.errKind, m.lastErr = "", "", nil
	if m.state == StateError {
		if m.handle != nil {
			m.state = StateReady
		} else {
			m.state = StateIdle
		}
	}
	m.mu.Unlock()
	m.assets.Revoke(imageAsset)
	if out != nil {
		m.assets.Revoke(out.AssetID)
	}
	m.log.Info().Str("event", EventReset).Msg("session reset")
	m.publish(Event{Name: EventReset})
	return nil
}

// Download is an encoded output ready to be saved.
type Download struct {
	Name string
	MIME string
	Data []byte
}

// DownloadName names an output file: upscaled-<scale>-<UTC timestamp><ext>.
func DownloadName(s registry.Scale, t time.Time, ext string) string {
	if ext == "" {
		ext = ".jpg"
	}
	return "upscaled-" + s.String() + "-" + t.UTC().Format("2006-01-02T15-04-05") + ext
}

// Download returns the current output under its download name.
func (m *Manager) Download() (Download, error) {
	m.mu.RLock()
	out := m.output
	m.mu.RUnlock()
	if out == nil {
		return Download{}, validation(ReasonNoOutput)
	}
	a, ok := m.assets.Get(out.AssetID)
	if !ok {
		return Download{}, validation(ReasonNoOutput)
	}
	return Download{Name: DownloadName(out.Scale, m.now(), out.Ext), MIME: a.MIME, Data: a.Data}, nil
}

// Asset returns a live display asset by id.
func (m *Manager) Asset(id string) (assets.Asset, bool) { return m.assets.Get(id) }

// Close releases the handle and every asset. In-flight loads are discarded
// when they complete. A handle in use by a run is closed when that run
// returns, and its result is dropped.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.gen++
	h := m.handle
	m.handle = nil
	if m.state == StateRunning {
		h = nil
	}
	imageAsset, out := m.imageAsset, m.output
	m.image, m.imageAsset, m.output = nil, "", nil
	m.state = StateIdle
	m.mu.Unlock()
	m.assets.Revoke(imageAsset)
	if out != nil {
		m.assets.Revoke(out.AssetID)
	}
	return h.Close()
}
