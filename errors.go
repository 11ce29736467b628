package shutdownguard

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyArmed is returned by Guard.Start when shutdown monitoring is already active in this process.
	ErrAlreadyArmed = errors.New("shutdownguard: monitoring is already armed in this process")

	// ErrUnsupported indicates that the requested monitor is not available on the host OS.
	ErrUnsupported = errors.New("monitor is not supported on this platform")

	// ErrNilMonitor indicates that a nil custom Monitor was configured.
	ErrNilMonitor = errors.New("monitor is nil")
)

// ArmingError is returned by Guard.Start when the selected monitor could not be armed.
// Monitoring is not active when this error is returned.
type ArmingError struct {
	Monitor string
	Err     error
}

// Error implements the error interface.
func (e *ArmingError) Error() string {
	return fmt.Sprintf("shutdownguard: arm %s: %v", e.Monitor, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ArmingError) Unwrap() error {
	return e.Err
}
