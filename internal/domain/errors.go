package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBusy   = errors.New("a request is already in flight")
	ErrClosed = errors.New("orchestrator closed")
)

// HTTPError reports a webhook answer outside the 2xx range.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Erreur HTTP: %d", e.Status)
}

// NetworkError reports a request that never produced a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a payload that does not match its declared content type.
type DecodeError struct {
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q payload: %v", e.ContentType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ResourceError reports an audio resource that could not be built or played.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("audio %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
