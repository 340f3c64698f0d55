// Package manager provides the session core: model loading, run admission,
// inference and output conversion for a single upscaling session. It is
// structured into small files by concern:
//
//   - manager.go: Manager (the session controller), its commands and the
//     background load.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, LoadProgress, Handle, RenderableOutput, Snapshot.
//   - errors.go: error taxonomy and helpers (IsModelLoad, IsValidation, ErrorKind).
//   - loader.go: Loader; turns engine progress into LoadProgress on a channel.
//   - executor.go: Executor; one timed engine invocation.
//   - admission.go: single in-flight run slot.
//   - events.go, eventpub_*.go: lifecycle events and publishers.
//   - metrics.go: Prometheus collectors.
//   - status_report.go: Snapshot/Status reporting helpers.
//
// Staleness is handled with a generation counter rather than cancellation: a
// load that completes after a newer selection closes its engine and leaves
// the session untouched.
//
// External packages should treat this package as the orchestration layer and use
// public methods only (e.g., NewWithConfig, SelectModel, SelectImage, Run, Reset,
// Download, Status).
package manager
