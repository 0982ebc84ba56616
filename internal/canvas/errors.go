package canvas

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("canvas: not found")
	// ErrInvalidArgument indicates a malformed or unsupported input value.
	ErrInvalidArgument = errors.New("canvas: invalid argument")
	// ErrLinkCycle indicates a task link that would close a dependency cycle.
	ErrLinkCycle = errors.New("canvas: link would create a cycle")
)

// ServiceError carries a dotted operation code alongside the underlying
// cause so handlers can match sentinels with errors.Is while logs keep the
// precise failure site.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code, e.g. "canvas.create_task_link.target_not_found".
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

func notFoundError(operation, reason, kind, id string) error {
	return newServiceError(operation, reason, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id))
}
