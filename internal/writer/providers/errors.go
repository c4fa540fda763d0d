package providers

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned, without any network attempt, when no
// credential is configured.
var ErrMissingAPIKey = errors.New("gemini API key is not configured")

// ErrEmptyResponse means the backend answered but produced no usable text.
var ErrEmptyResponse = errors.New("no response from model")

// TransportError wraps a network or backend failure.
type TransportError struct {
	Mode  Mode
	Model string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s call to %s failed: %v", e.Mode, e.Model, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
