package registry

import "errors"

// UnknownModelError is returned when an id is not in the catalog.
type UnknownModelError struct{ ID string }

func (e UnknownModelError) Error() string { return "unknown model: " + e.ID }

// ErrUnknownModel constructs an UnknownModelError.
func ErrUnknownModel(id string) error { return UnknownModelError{ID: id} }

// IsUnknownModel reports whether err indicates an id missing from the catalog.
func IsUnknownModel(err error) bool {
	var e UnknownModelError
	return errors.As(err, &e)
}
