package types

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models, in display order.
	Models []Model `json:"models"`
}

// SelectModelRequest is the body of POST /model.
type SelectModelRequest struct {
	// Model identifier from GET /models.
	// example: Xenova/swin2SR-classical-sr-x4-64
	Model string `json:"model" example:"Xenova/swin2SR-classical-sr-x4-64"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// User-facing error message.
	// example: Please select an image.
	Error string `json:"error" example:"Please select an image."`
	// Stable error kind (unknown_model, model_load, inference, encode, validation).
	// example: validation
	Kind string `json:"kind,omitempty" example:"validation"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}

// LoadProgress describes an in-flight model load.
type LoadProgress struct {
	// One of checking-cache, downloading, initiating, ready.
	// example: downloading
	Phase string `json:"phase" example:"downloading"`
	// Percent complete when known.
	// example: 42
	Percent *int `json:"percent,omitempty" example:"42"`
	// Artifact currently transferring or initializing.
	// example: manifest.json
	File string `json:"file,omitempty" example:"manifest.json"`
	// Human-readable status line.
	// example: Downloading manifest.json...
	Text string `json:"text" example:"Downloading manifest.json..."`
}

// ImageStatus describes the current source image.
type ImageStatus struct {
	// Original file name, if provided.
	Name string `json:"name,omitempty"`
	// Detected media type.
	// example: image/png
	MIME string `json:"mime" example:"image/png"`
	// example: 100
	Width int `json:"width" example:"100"`
	// example: 80
	Height int `json:"height" example:"80"`
	// Preview asset path.
	// example: /assets/6f1c...
	URL string `json:"url,omitempty"`
}

// OutputStatus describes the current rendered output.
type OutputStatus struct {
	// example: image/jpeg
	MIME string `json:"mime" example:"image/jpeg"`
	// example: 200
	Width int `json:"width" example:"200"`
	// example: 160
	Height int `json:"height" example:"160"`
	// Inference wall time in milliseconds.
	// example: 812
	ElapsedMS int64 `json:"elapsed_ms" example:"812"`
	// Inference wall time formatted for display.
	// example: 0.81s
	ProcessingTime string `json:"processing_time" example:"0.81s"`
	// Asset path of the encoded output.
	// example: /assets/9b2e...
	URL string `json:"url"`
	// Suggested download file name.
	// example: upscaled-2x-2024-05-01T10-20-30.jpg
	DownloadName string `json:"download_name" example:"upscaled-2x-2024-05-01T10-20-30.jpg"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Session state: idle, loading, ready, running or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Currently selected model, if any.
	Model *Model `json:"model,omitempty"`
	// Whether an engine handle is held.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Backend of the loaded engine.
	// example: preferred-hardware
	Backend string `json:"backend,omitempty" example:"preferred-hardware"`
	// Load progress while loading.
	Progress *LoadProgress `json:"progress,omitempty"`
	// Run progress in percent (0 at start, 100 on success).
	// example: 100
	RunProgress int `json:"run_progress" example:"100"`
	Image       *ImageStatus  `json:"image,omitempty"`
	Output      *OutputStatus `json:"output,omitempty"`
	// User-facing error message while in the error state.
	Error string `json:"error,omitempty"`
	// Stable kind of the last error.
	ErrorKind string `json:"error_kind,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of completed model loads.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Total number of completed runs.
	// example: 7
	RunsTotal uint64 `json:"runs_total" example:"7"`
}

// EventMessage is one Server-Sent Event payload on GET /events.
type EventMessage struct {
	// example: load_ready
	Name string `json:"name" example:"load_ready"`
	// example: Xenova/swin2SR-classical-sr-x2-64
	ModelID string         `json:"model_id,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	// example: 1700000000000
	TimeUnixMS int64 `json:"time_unix_ms" example:"1700000000000"`
}
