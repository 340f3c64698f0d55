package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"upscaled/pkg/types"
)

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called when the handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(InflightMiddleware)

		r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.ListModels()})
		})

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Post("/model", func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", "")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
			var req types.SelectModelRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body", "")
				return
			}
			if strings.TrimSpace(req.Model) == "" {
				writeJSONError(w, http.StatusBadRequest, "model is required", "")
				return
			}
			if err := svc.SelectModel(req.Model); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusAccepted, svc.Status())
		})

		r.Post("/model/reload", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.Reload(); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusAccepted, svc.Status())
		})

		r.Put("/image", func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			content, err := io.ReadAll(r.Body)
			if err != nil {
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) {
					writeJSONError(w, http.StatusRequestEntityTooLarge, "image exceeds "+strconv.FormatInt(mbe.Limit, 10)+" bytes", "validation")
					return
				}
				writeJSONError(w, http.StatusBadRequest, "failed to read body", "")
				return
			}
			name := r.URL.Query().Get("name")
			if name == "" {
				name = r.Header.Get("X-File-Name")
			}
			if err := svc.SelectImage(content, name); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Post("/run", func(w http.ResponseWriter, r *http.Request) {
			// The run belongs to the session, not the request: a client
			// that disconnects does not cancel it, shutdown does.
			if err := svc.Run(serverBaseCtx); err != nil {
				if serverBaseCtx.Err() != nil {
					writeJSONError(w, http.StatusServiceUnavailable, "server shutting down", "")
					return
				}
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.Reset(); err != nil {
				writeServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/download", func(w http.ResponseWriter, r *http.Request) {
			d, err := svc.Download()
			if err != nil {
				writeServiceError(w, err)
				return
			}
			w.Header().Set("Content-Type", d.MIME)
			w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
			w.Header().Set("Content-Disposition", `attachment; filename="`+d.Name+`"`)
			_, _ = w.Write(d.Data)
		})

		r.Get("/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
			a, ok := svc.Asset(chi.URLParam(r, "id"))
			if !ok {
				writeJSONError(w, http.StatusNotFound, "asset not found", "")
				return
			}
			w.Header().Set("Content-Type", a.MIME)
			w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
			w.Header().Set("Cache-Control", "private, max-age=3600, immutable")
			_, _ = w.Write(a.Data)
		})

		r.Get("/events", eventsHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
