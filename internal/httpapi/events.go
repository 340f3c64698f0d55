package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"upscaled/internal/manager"
	"upscaled/pkg/types"
)

// sseKeepAlive is the interval of comment frames on idle event streams.
var sseKeepAlive = 15 * time.Second

// ToEventMessage converts a session event to its wire form.
func ToEventMessage(e manager.Event) types.EventMessage {
	return types.EventMessage{Name: e.Name, ModelID: e.ModelID, Fields: e.Fields, TimeUnixMS: e.Time.UnixMilli()}
}

// eventsHandler streams session events as Server-Sent Events until the
// client goes away or the server shuts down.
func eventsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported", "")
			return
		}
		ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
		defer cancel()
		events, unsubscribe := svc.Subscribe()
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		tick := time.NewTicker(sseKeepAlive)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case e, ok := <-events:
				if !ok {
					return
				}
				b, err := json.Marshal(ToEventMessage(e))
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, b); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
