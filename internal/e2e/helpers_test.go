package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/engine/artifact"
	"upscaled/internal/engine/resample"
	"upscaled/internal/httpapi"
	"upscaled/internal/manager"
	"upscaled/pkg/types"
)

const (
	model2x = "Xenova/swin2SR-classical-sr-x2-64"
	model4x = "Xenova/swin2SR-classical-sr-x4-64"
)

// newServer starts the full stack over src with no disk cache.
func newServer(t *testing.T, src artifact.Source) (*httptest.Server, *manager.Manager) {
	t.Helper()
	log := zerolog.Nop()
	cache := artifact.NewCache(src, "", log)
	m := manager.NewWithConfig(manager.ManagerConfig{
		Constructor: resample.NewConstructor(cache, 2, log),
		Logger:      log,
	})
	svc := httpapi.NewSessionService(m, nil)
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(func() {
		srv.Close()
		_ = m.Close()
	})
	return srv, m
}

func newBuiltinServer(t *testing.T) (*httptest.Server, *manager.Manager) {
	return newServer(t, artifact.FSSource{FS: resample.Builtin()})
}

func do(t *testing.T, method, url, ct string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func getStatus(t *testing.T, base string) types.StatusResponse {
	t.Helper()
	resp, body := do(t, http.MethodGet, base+"/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, body)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v", err)
	}
	return st
}

func selectModel(t *testing.T, base, id string) {
	t.Helper()
	resp, body := do(t, http.MethodPost, base+"/model", "application/json", []byte(`{"model":"`+id+`"}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("/model %d %s", resp.StatusCode, body)
	}
}

// waitState polls /status until the session leaves the loading state.
func waitState(t *testing.T, base string) types.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		st := getStatus(t, base)
		if st.State != "loading" {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("session still loading")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
