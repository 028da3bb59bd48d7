package apperr

import "errors"

// Engine error taxonomy. Handlers translate these to HTTP statuses; services
// wrap them with context via fmt.Errorf("...: %w", err) so errors.Is still
// matches.
var (
	// ErrNotFound covers unknown tokens, ids and missing reports.
	ErrNotFound = errors.New("not found")
	// ErrExpired marks a session whose TTL has passed.
	ErrExpired = errors.New("session expired")
	// ErrInvalidState is a programming error: an engine operation was invoked
	// from a session status it is not defined for.
	ErrInvalidState = errors.New("invalid session state")
	// ErrInvalidTransition rejects a lifecycle event not valid for the
	// session's current status.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInvalidAnswerShape rejects an answer payload whose shape does not
	// match the question's declared type.
	ErrInvalidAnswerShape = errors.New("answer shape does not match question type")
	// ErrInvalidChoice rejects a choice id not offered by the current scene.
	ErrInvalidChoice = errors.New("choice not available in current scene")
	// ErrSessionClosed rejects writes to a completed session.
	ErrSessionClosed = errors.New("session already completed")
	// ErrCorruptState means a stored scene or question reference no longer
	// resolves against the current definition. The session is left untouched.
	ErrCorruptState = errors.New("stored state no longer matches definition")
	// ErrConflict is returned when a conditional write lost a concurrent race
	// on the same session.
	ErrConflict = errors.New("concurrent update conflict")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

