package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotHost is returned when someone other than the host edits an event.
	ErrNotHost = errors.New("Only the event host can edit this event")
	// ErrDuplicateRequest is returned when a pending request to the same receiver exists.
	ErrDuplicateRequest = errors.New("You already sent a request to this user")
	// ErrUserExists is returned when provisioning a user whose email is taken.
	ErrUserExists = errors.New("User with this email already exists")
	// ErrInvalidState is returned when an editor operation is not allowed in its current state.
	ErrInvalidState = errors.New("operation not allowed in the current state")
	// ErrRequestNotPending is returned when answering a request that was
	// already accepted or declined.
	ErrRequestNotPending = errors.New("This request is no longer pending")
)

// ValidationError is raised before any remote call. Message is shown to the
// user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return v.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AlreadyFriendError is returned when adding someone who is already in the
// caller's friend list.
type AlreadyFriendError struct {
	Message string
}

func (e *AlreadyFriendError) Error() string { return e.Message }

// UserNotFoundError is a lookup by email that matched nobody.
type UserNotFoundError struct {
	Email   string
	Message string
}

func (e *UserNotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("User with email %s not found", e.Email)
}

// RemoteError wraps a failed store or object store call. Op reads as the
// tail of "Failed to ...".
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("Failed to %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func remote(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

// PartialWriteError reports a multi-write sequence that stopped part way.
// Completed lists the steps already persisted, which are not rolled back.
type PartialWriteError struct {
	Op        string
	Failed    string
	Completed []string
	Err       error
}

func (e *PartialWriteError) Error() string {
	if len(e.Completed) == 0 {
		return fmt.Sprintf("Failed to %s: %s: %v", e.Op, e.Failed, e.Err)
	}
	return fmt.Sprintf("Failed to %s: %s: %v (already applied: %s)",
		e.Op, e.Failed, e.Err, strings.Join(e.Completed, ", "))
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// UserMessage renders err as the text a client shows to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotFound) {
		return "Not found"
	}
	return err.Error()
}

// ErrorKind maps sentinel and typed errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		vErr       *ValidationError
		friendErr  *AlreadyFriendError
		missErr    *UserNotFoundError
		partialErr *PartialWriteError
		remoteErr  *RemoteError
	)
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotHost):
		return "not_host"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, ErrUserExists):
		return "user_exists"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrRequestNotPending):
		return "request_not_pending"
	case errors.As(err, &friendErr):
		return "already_friend"
	case errors.As(err, &missErr):
		return "user_not_found"
	case errors.As(err, &partialErr):
		return "partial_write"
	case errors.As(err, &remoteErr):
		return "remote"
	}
	return "unexpected"
}
