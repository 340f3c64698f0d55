package manager

import (
	"errors"

	"upscaled/internal/imageio"
	"upscaled/internal/registry"
	"upscaled/internal/render"
)

// ModelLoadError reports that an engine could not be constructed.
type ModelLoadError struct {
	ModelID string
	Err     error
}

func (e *ModelLoadError) Error() string { return "load " + e.ModelID + ": " + e.Err.Error() }
func (e *ModelLoadError) Unwrap() error { return e.Err }

// IsModelLoad reports whether err is or wraps a *ModelLoadError.
func IsModelLoad(err error) bool {
	var le *ModelLoadError
	return errors.As(err, &le)
}

// InferenceError reports that the engine failed while running, or returned
// output inconsistent with the request.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return "inference: " + e.Err.Error() }
func (e *InferenceError) Unwrap() error { return e.Err }

// IsInference reports whether err is or wraps an *InferenceError.
func IsInference(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie)
}

// Reason identifies why a command was rejected.
type Reason string

const (
	ReasonNoImage      Reason = "no_image"
	ReasonStillLoading Reason = "still_loading"
	ReasonNoModel      Reason = "no_model"
	ReasonBusy         Reason = "busy"
	ReasonInvalidImage Reason = "invalid_image"
	ReasonNoOutput     Reason = "no_output"
	ReasonClosed       Reason = "closed"
)

var reasonMessages = map[Reason]string{
	ReasonNoImage:      "Please select an image.",
	ReasonStillLoading: "Model is still loading. Please wait.",
	ReasonNoModel:      "No model is loaded. Select a model first.",
	ReasonBusy:         "An upscale is already in progress.",
	ReasonInvalidImage: "Unsupported or unreadable image.",
	ReasonNoOutput:     "Nothing to download yet. Run an upscale first.",
	ReasonClosed:       "The session is shut down.",
}

// ValidationError is a synchronous rejection of a command whose
// preconditions do not hold. It never causes a state transition.
type ValidationError struct {
	Reason Reason
	Err    error
}

func (e *ValidationError) Error() string {
	msg := reasonMessages[e.Reason]
	if e.Err != nil {
		return msg + " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func validation(r Reason) error { return &ValidationError{Reason: r} }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationReason returns the reason of a validation error, or "".
func ValidationReason(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ""
}

// Error kinds as exposed to clients.
const (
	KindUnknownModel = "unknown_model"
	KindModelLoad    = "model_load"
	KindInference    = "inference"
	KindEncode       = "encode"
	KindValidation   = "validation"
	KindInternal     = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case registry.IsUnknownModel(err):
		return KindUnknownModel
	case IsValidation(err):
		return KindValidation
	case IsModelLoad(err):
		return KindModelLoad
	case render.IsEncodeError(err):
		return KindEncode
	case IsInference(err):
		return KindInference
	}
	return KindInternal
}

// UserMessage renders err the way the session surfaces it.
func UserMessage(err error) string {
	var (
		le *ModelLoadError
		ie *InferenceError
		ve *ValidationError
		ee *render.EncodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &le):
		return "Failed to load model: " + le.Err.Error()
	case errors.As(err, &ee):
		return "Processing failed: " + ee.Error()
	case errors.As(err, &ie):
		return "Processing failed: " + ie.Err.Error()
	case registry.IsUnknownModel(err):
		return err.Error()
	}
	return err.Error()
}

// IsUnsupportedImage reports whether a rejected image had an unknown type.
func IsUnsupportedImage(err error) bool { return IsValidation(err) && imageio.IsUnsupported(err) }

// IsImageTooLarge reports whether a rejected image exceeded the pixel limit.
func IsImageTooLarge(err error) bool { return IsValidation(err) && imageio.IsTooLarge(err) }
