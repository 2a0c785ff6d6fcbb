package chain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownStage  = errors.New("chain: unknown stage")
	ErrStageDisabled = errors.New("chain: stage is disabled")
)

// NetworkError reports a transport failure: the lookup service never answered.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	return fmt.Sprintf("network error: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BackendError reports a non-2xx status or a body carrying success=false.
// Status is zero when the failure was signalled only by the body.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	if e.Status == 0 {
		return "backend error: " + msg
	}
	return fmt.Sprintf("backend error (status %d): %s", e.Status, msg)
}

// ValidationError is returned when a required stage is unset before an action
// that depends on it.
type ValidationError struct {
	Stage string
	Label string
}

func (e *ValidationError) Error() string {
	label := e.Label
	if label == "" {
		label = e.Stage
	}
	return fmt.Sprintf("please select a %s", strings.ToLower(label))
}
