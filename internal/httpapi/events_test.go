package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"upscaled/internal/manager"
)

func TestEventsStream(t *testing.T) {
	svc := &mockService{events: make(chan manager.Event, 4)}
	srv := httptest.NewServer(NewMux(svc))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	svc.events <- manager.Event{Name: manager.EventLoadReady, ModelID: "m", Time: time.UnixMilli(1700000000000)}
	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" && len(lines) > 0 {
			break
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) != 2 || lines[0] != "event: load_ready" {
		t.Fatalf("frame: %v", lines)
	}
	if !strings.Contains(lines[1], `"time_unix_ms":1700000000000`) || !strings.Contains(lines[1], `"model_id":"m"`) {
		t.Fatalf("data: %s", lines[1])
	}
}

func TestToEventMessage(t *testing.T) {
	e := manager.Event{Name: manager.EventRunDone, Fields: map[string]any{"elapsed_ms": 12}, Time: time.UnixMilli(5)}
	msg := ToEventMessage(e)
	if msg.Name != "run_done" || msg.TimeUnixMS != 5 || msg.Fields["elapsed_ms"] != 12 {
		t.Fatalf("message: %+v", msg)
	}
}
