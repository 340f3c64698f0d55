package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{"off": LevelOff, "error": LevelError, "": LevelInfo, "info": LevelInfo, "debug": LevelDebug, "weird": LevelInfo}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestRequestLogLevelOverrides(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/status?log=debug", nil)
	if requestLogLevel(r) != LevelDebug {
		t.Fatalf("query override ignored")
	}
	r = httptest.NewRequest(http.MethodGet, "/status", nil)
	r.Header.Set("X-Log-Level", "off")
	if requestLogLevel(r) != LevelOff {
		t.Fatalf("header override ignored")
	}
}

func TestRequestLoggerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()
	h := NewMux(&mockService{})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/models", nil))
	out := buf.String()
	if !strings.Contains(out, `"path":"/models"`) || !strings.Contains(out, `"status":200`) {
		t.Fatalf("log line: %s", out)
	}

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/models?log=off", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected no output with log=off, got %s", buf.String())
	}
}
