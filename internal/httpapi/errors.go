package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"upscaled/internal/manager"
	"upscaled/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Kind: kind, Code: status})
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe), manager.IsImageTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case manager.IsUnsupportedImage(err):
		return http.StatusUnsupportedMediaType
	}
	switch manager.ErrorKind(err) {
	case manager.KindUnknownModel:
		return http.StatusNotFound
	case manager.KindValidation:
		return http.StatusConflict
	case manager.KindModelLoad:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError maps err and writes it with its user-facing message.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusConflict {
		IncrementRejection(string(manager.ValidationReason(err)))
	}
	writeJSONError(w, status, manager.UserMessage(err), manager.ErrorKind(err))
}
