package resample

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"upscaled/internal/engine"
	"upscaled/internal/engine/artifact"
	"upscaled/internal/registry"
)

func newCtor(workers int) *Constructor {
	cache := artifact.NewCache(artifact.FSSource{FS: Builtin()}, "", zerolog.Nop())
	return NewConstructor(cache, workers, zerolog.Nop())
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestEveryCatalogModelHasManifest(t *testing.T) {
	for _, m := range registry.Default().List() {
		e, err := newCtor(4).Construct(context.Background(), m.ID, engine.Options{})
		if err != nil {
			t.Fatalf("construct %s: %v", m.ID, err)
		}
		if got := e.(engine.Scaler).Scale(); got != int(m.Scale) {
			t.Fatalf("%s: manifest scale %d, catalog %d", m.ID, got, m.Scale)
		}
		_ = e.Close()
	}
}

func TestUpscaleDimensions(t *testing.T) {
	content := testPNG(t, 5, 3)
	for _, m := range registry.Default().List() {
		for _, backend := range []engine.Backend{engine.BackendPreferredHardware, engine.BackendFallbackSoftware} {
			e, err := newCtor(3).Construct(context.Background(), m.ID, engine.Options{Backend: backend})
			if err != nil {
				t.Fatalf("construct %s: %v", m.ID, err)
			}
			px, err := e.Upscale(context.Background(), content)
			if err != nil {
				t.Fatalf("upscale %s/%s: %v", m.ID, backend, err)
			}
			s := int(m.Scale)
			if px.Width != 5*s || px.Height != 3*s || px.Channels != 3 {
				t.Fatalf("%s: got %dx%dx%d", m.ID, px.Width, px.Height, px.Channels)
			}
			if len(px.Data) != px.Width*px.Height*px.Channels {
				t.Fatalf("%s: data length %d", m.ID, len(px.Data))
			}
			_ = e.Close()
		}
	}
}

func TestBandedMatchesSingle(t *testing.T) {
	content := testPNG(t, 6, 6)
	id := "Xenova/swin2SR-classical-sr-x4-64"
	hw, err := newCtor(4).Construct(context.Background(), id, engine.Options{Backend: engine.BackendPreferredHardware})
	if err != nil {
		t.Fatal(err)
	}
	defer hw.Close()
	sw, err := newCtor(4).Construct(context.Background(), id, engine.Options{Backend: engine.BackendFallbackSoftware})
	if err != nil {
		t.Fatal(err)
	}
	defer sw.Close()
	a, err := hw.Upscale(context.Background(), content)
	if err != nil {
		t.Fatal(err)
	}
	b, err := sw.Upscale(context.Background(), content)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Fatalf("banded render differs from single pass")
	}
}

func TestBackendUnavailable(t *testing.T) {
	_, err := newCtor(1).Construct(context.Background(), "Xenova/swin2SR-classical-sr-x2-64", engine.Options{})
	if !errors.Is(err, engine.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	e, err := newCtor(1).Construct(context.Background(), "Xenova/swin2SR-classical-sr-x2-64",
		engine.Options{Backend: engine.BackendFallbackSoftware})
	if err != nil {
		t.Fatalf("software backend: %v", err)
	}
	_ = e.Close()
}

func TestConstructProgressAndUnknown(t *testing.T) {
	manifest, err := fs.ReadFile(Builtin(), "Xenova/swin2SR-classical-sr-x2-64/"+ManifestFile)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Xenova/swin2SR-classical-sr-x2-64/"+ManifestFile {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(manifest)
	}))
	defer srv.Close()
	cache := artifact.NewCache(artifact.HTTPSource{BaseURL: srv.URL}, "", zerolog.Nop())
	ctor := NewConstructor(cache, 2, zerolog.Nop())

	var statuses []engine.ProgressStatus
	e, err := ctor.Construct(context.Background(), "Xenova/swin2SR-classical-sr-x2-64", engine.Options{
		Progress: func(p engine.Progress) { statuses = append(statuses, p.Status) },
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = e.Close()
	if len(statuses) < 3 || statuses[0] != engine.StatusDownload || statuses[len(statuses)-1] != engine.StatusInitiate {
		t.Fatalf("unexpected progress sequence %v", statuses)
	}
	initiated := false
	for _, s := range statuses {
		if s == engine.StatusInitiate {
			initiated = true
		}
		if s == engine.StatusDownload && initiated {
			t.Fatalf("download reported after initiate: %v", statuses)
		}
	}
	if _, err := ctor.Construct(context.Background(), "nobody/nothing", engine.Options{}); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}

func TestUpscaleAfterCloseAndBadInput(t *testing.T) {
	e, err := newCtor(2).Construct(context.Background(), "Xenova/swin2SR-classical-sr-x2-64", engine.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Upscale(context.Background(), []byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
	_ = e.Close()
	_ = e.Close()
	if _, err := e.Upscale(context.Background(), testPNG(t, 2, 2)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestParseManifest(t *testing.T) {
	if _, err := ParseManifest("a", []byte(`{"scale":3}`)); err == nil {
		t.Fatalf("expected scale error")
	}
	if _, err := ParseManifest("a", []byte(`{"scale":2,"kernel":"cubic-spline"}`)); err == nil {
		t.Fatalf("expected kernel error")
	}
	if _, err := ParseManifest("a", []byte(`{"model_id":"b","scale":2}`)); err == nil {
		t.Fatalf("expected id mismatch error")
	}
	m, err := ParseManifest("a", []byte(`{"scale":2}`))
	if err != nil || m.Kernel != KernelCatmullRom || m.ModelID != "a" {
		t.Fatalf("defaults: %+v %v", m, err)
	}
}
