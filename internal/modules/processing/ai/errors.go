package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredential is returned before any network call when no API key
	// is stored.
	ErrMissingCredential = errors.New("no API key configured")
	// ErrGenerationFailed classifies every failed completion call.
	ErrGenerationFailed = errors.New("response generation failed")
)

// GenerationError describes one failed completion call. Message is the
// provider's own error message when the response carried one.
type GenerationError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *GenerationError) Error() string {
	msg := e.Message
	if msg == "" && e.Status != 0 {
		msg = http.StatusText(e.Status)
	}
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

func generationFailed(provider string, status int, message string, err error) error {
	return &GenerationError{Provider: provider, Status: status, Message: message, Err: err}
}
