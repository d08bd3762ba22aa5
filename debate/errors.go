package debate

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("debate session not found")
	// ErrTopicRequired indicates a start request with an empty topic.
	ErrTopicRequired = errors.New("topic is required")
	// ErrSessionConflict indicates a session already has a worker or is terminal.
	ErrSessionConflict = errors.New("debate session conflict")
	// ErrInvalidStatus indicates a session status is invalid.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidPhase indicates a debate phase is invalid.
	ErrInvalidPhase = errors.New("invalid phase")
	// ErrFieldRequired indicates a write with a missing required field.
	ErrFieldRequired = errors.New("required field missing")
)

// ConflictError is returned when a session cannot accept another worker.
// It carries the session's current status so callers can decide whether to
// treat the conflict as success.
type ConflictError struct {
	SessionID string
	Status    Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("debate session %s is %s", e.SessionID, e.Status)
}

func (e *ConflictError) Unwrap() error {
	return ErrSessionConflict
}

func formatInvalidStatusError(status Status) error {
	return fmt.Errorf("%w: %q (valid: %v)", ErrInvalidStatus, status, ValidStatuses())
}

func formatInvalidPhaseError(phase Phase) error {
	return fmt.Errorf("%w: %q (valid: %v)", ErrInvalidPhase, phase, PhaseOrder())
}
