package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsUseRoutePattern(t *testing.T) {
	h := NewMux(&mockService{})
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/assets/{id}", http.MethodGet, "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assets/one", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assets/two", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/assets/{id}", http.MethodGet, "404"))
	if after-before != 2 {
		t.Fatalf("expected 2 requests under the route pattern, got %v", after-before)
	}
}

func TestRejectionCounter(t *testing.T) {
	before := testutil.ToFloat64(rejectionsTotal.WithLabelValues("no_image"))
	IncrementRejection("no_image")
	if got := testutil.ToFloat64(rejectionsTotal.WithLabelValues("no_image")); got-before != 1 {
		t.Fatalf("rejections delta: %v", got-before)
	}
	before = testutil.ToFloat64(rejectionsTotal.WithLabelValues("unspecified"))
	IncrementRejection("")
	if got := testutil.ToFloat64(rejectionsTotal.WithLabelValues("unspecified")); got-before != 1 {
		t.Fatalf("unspecified delta: %v", got-before)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(&mockService{})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/models", nil))
	srv := httptest.NewServer(h)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "upscaled_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}
