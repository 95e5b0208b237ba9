package provider

import (
	"errors"
	"fmt"
)

// Sentinel kinds for provider errors.
var (
	ErrTransport = errors.New("provider transport failure")
	ErrStatus    = errors.New("provider returned an error status")
	ErrDecode    = errors.New("provider payload could not be decoded")
)

// StatusError carries the status of a non-2xx response. It matches ErrStatus.
type StatusError struct {
	StatusCode int
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider %s: status %d", e.Path, e.StatusCode)
}

// Is reports whether target is ErrStatus.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }
