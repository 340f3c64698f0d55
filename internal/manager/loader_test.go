package manager

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/engine"
	"upscaled/internal/engine/artifact"
	"upscaled/internal/engine/resample"
	"upscaled/internal/registry"
)

func collect(t *testing.T, l *Loader, md registry.Model) ([]LoadProgress, *Handle, error) {
	t.Helper()
	sink := make(chan LoadProgress, 64)
	h, err := l.Load(context.Background(), md, sink)
	close(sink)
	var out []LoadProgress
	for p := range sink {
		out = append(out, p)
	}
	return out, h, err
}

func TestLoaderProgressIsMonotonic(t *testing.T) {
	ctor := newFakeCtor()
	ctor.progress = []engine.Progress{
		{Status: engine.StatusDownload, File: "manifest.json", Fraction: 0.1, HasFraction: true},
		{Status: engine.StatusDownload, File: "manifest.json", Fraction: 0.5, HasFraction: true},
		{Status: engine.StatusDownload, File: "manifest.json", Fraction: 0.3, HasFraction: true},
		{Status: engine.StatusDownload, File: "manifest.json", Loaded: 9, Total: 10},
		{Status: engine.StatusDownload, File: "manifest.json"},
		{Status: engine.StatusDone, File: "manifest.json"},
		{Status: engine.StatusInitiate, File: "manifest.json"},
	}
	cat := registry.Default()
	l := NewLoader(ctor, cat, "", 0, zerolog.Nop())
	md, _ := cat.Find(model2x)
	events, h, err := collect(t, l, md)
	if err != nil || h == nil {
		t.Fatalf("load: %v", err)
	}
	defer h.Close()
	if events[0].Phase != PhaseCheckingCache {
		t.Fatalf("first event %+v", events[0])
	}
	if last := events[len(events)-1]; last.Phase != PhaseReady {
		t.Fatalf("last event %+v", last)
	}
	ready, pct := 0, -1
	for _, e := range events {
		if e.Phase == PhaseReady {
			ready++
		}
		if e.Phase == PhaseDownloading && e.Known {
			if e.Percent < pct {
				t.Fatalf("percent went backwards: %d after %d", e.Percent, pct)
			}
			pct = e.Percent
		}
	}
	if ready != 1 || pct != 90 {
		t.Fatalf("ready=%d final percent=%d in %+v", ready, pct, events)
	}
	assertPhaseOrder(t, events)
	if h.Model != md || h.Backend != engine.BackendPreferredHardware {
		t.Fatalf("handle %+v", h)
	}
	if ctor.calls[0].Precision != engine.PrecisionFull {
		t.Fatalf("precision %q", ctor.calls[0].Precision)
	}
}

var phaseRank = map[LoadPhase]int{
	PhaseCheckingCache: 0,
	PhaseDownloading:   1,
	PhaseInitiating:    2,
	PhaseReady:         3,
}

func assertPhaseOrder(t *testing.T, events []LoadProgress) {
	t.Helper()
	prev := -1
	for _, e := range events {
		r := phaseRank[e.Phase]
		if r < prev {
			t.Fatalf("%s after a later phase in %+v", e.Phase, events)
		}
		prev = r
	}
}

func TestLoaderDropsDownloadsAfterInitiating(t *testing.T) {
	ctor := newFakeCtor()
	ctor.progress = []engine.Progress{
		{Status: engine.StatusDownload, File: "manifest.json", Fraction: 0.4, HasFraction: true},
		{Status: engine.StatusInitiate, File: "manifest.json"},
		{Status: engine.StatusDownload, File: "weights.bin", Fraction: 0.2, HasFraction: true},
	}
	cat := registry.Default()
	md, _ := cat.Find(model2x)
	events, h, err := collect(t, NewLoader(ctor, cat, "", 0, zerolog.Nop()), md)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer h.Close()
	assertPhaseOrder(t, events)
	got := make([]LoadPhase, 0, len(events))
	for _, e := range events {
		got = append(got, e.Phase)
	}
	want := []LoadPhase{PhaseCheckingCache, PhaseDownloading, PhaseInitiating, PhaseReady}
	if len(got) != len(want) {
		t.Fatalf("phases %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("phases %v, want %v", got, want)
		}
	}
}

func TestLoaderPhaseOrderOverHTTPArtifacts(t *testing.T) {
	manifest, err := fs.ReadFile(resample.Builtin(), model2x+"/"+resample.ManifestFile)
	if err != nil {
		t.Fatal(err)
	}
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(manifest)
	}))
	defer origin.Close()
	cache := artifact.NewCache(artifact.HTTPSource{BaseURL: origin.URL}, "", zerolog.Nop())
	cat := registry.Default()
	md, _ := cat.Find(model2x)
	l := NewLoader(resample.NewConstructor(cache, 2, zerolog.Nop()), cat, "", 0, zerolog.Nop())
	events, h, err := collect(t, l, md)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer h.Close()
	assertPhaseOrder(t, events)
	seen := map[LoadPhase]bool{}
	for _, e := range events {
		seen[e.Phase] = true
	}
	if !seen[PhaseDownloading] || !seen[PhaseInitiating] {
		t.Fatalf("missing phases in %+v", events)
	}
}

func TestPercentOfRounds(t *testing.T) {
	cases := []struct {
		p    engine.Progress
		want int
	}{
		{engine.Progress{Fraction: 0.296, HasFraction: true}, 30},
		{engine.Progress{Fraction: 0.294, HasFraction: true}, 29},
		{engine.Progress{Loaded: 2, Total: 3}, 67},
		{engine.Progress{Fraction: 1.4, HasFraction: true}, 100},
	}
	for _, c := range cases {
		if got, ok := percentOf(c.p); !ok || got != c.want {
			t.Fatalf("percentOf(%+v) = %d, want %d", c.p, got, c.want)
		}
	}
	if _, ok := percentOf(engine.Progress{}); ok {
		t.Fatalf("expected unknown percent without fraction or total")
	}
}

func TestLoaderRejectsForgedDescriptor(t *testing.T) {
	l := NewLoader(newFakeCtor(), registry.Default(), "", 0, zerolog.Nop())
	md, _ := registry.Default().Find(model2x)
	md.Scale = registry.Scale4x
	if _, _, err := collect(t, l, md); !registry.IsUnknownModel(err) {
		t.Fatalf("expected unknown model, got %v", err)
	}
}

func TestLoaderClosesEngineOnScaleMismatch(t *testing.T) {
	ctor := newFakeCtor()
	ctor.newEng = func(string) *fakeEngine { return &fakeEngine{scale: 3} }
	l := NewLoader(ctor, registry.Default(), "", 0, zerolog.Nop())
	md, _ := registry.Default().Find(model2x)
	events, h, err := collect(t, l, md)
	if !IsModelLoad(err) || h != nil {
		t.Fatalf("expected ModelLoadError without handle, got %v %v", h, err)
	}
	if !ctor.built()[0].closed.Load() {
		t.Fatalf("partial engine not closed")
	}
	for _, e := range events {
		if e.Phase == PhaseReady {
			t.Fatalf("ready emitted for failed load")
		}
	}
}

func TestLoaderTimeout(t *testing.T) {
	ctor := newFakeCtor()
	ctor.gate(model2x)
	l := NewLoader(ctor, registry.Default(), "", 20*time.Millisecond, zerolog.Nop())
	md, _ := registry.Default().Find(model2x)
	_, _, err := collect(t, l, md)
	if !IsModelLoad(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline ModelLoadError, got %v", err)
	}
}

func TestExecutorWrapsFaultsAndPanics(t *testing.T) {
	x := NewExecutor(0)
	h := &Handle{eng: &fakeEngine{scale: 2, errs: []error{errors.New("boom")}}}
	if _, err := x.Run(context.Background(), h, SourceImage{Content: pngOf(t, 1, 1)}); !IsInference(err) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	h = &Handle{eng: panicEngine{}}
	if _, err := x.Run(context.Background(), h, SourceImage{}); !IsInference(err) {
		t.Fatalf("expected InferenceError from panic, got %v", err)
	}
	if _, err := x.Run(context.Background(), nil, SourceImage{}); !IsInference(err) {
		t.Fatalf("expected InferenceError for nil handle, got %v", err)
	}
}

type panicEngine struct{}

func (panicEngine) Upscale(context.Context, []byte) (engine.RawPixels, error) { panic("kaboom") }
func (panicEngine) Close() error                                            { return nil }
