package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNameInvalid      = fmt.Errorf("username is invalid")
	ErrNameTaken        = fmt.Errorf("username is already taken")
	ErrNotJoined        = fmt.Errorf("participant has not joined")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrRateLimited      = fmt.Errorf("rate limit exceeded")
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrMessageInvalid   = fmt.Errorf("message is invalid")
	ErrInternal         = fmt.Errorf("internal error")

	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrEmptyDictionary = fmt.Errorf("no censored words have been found")
)

// Wire kinds reported back to the originating actor in error events.
const (
	KindNameInvalid      = "NameInvalid"
	KindNameTaken        = "NameTaken"
	KindNotJoined        = "NotJoined"
	KindPermissionDenied = "PermissionDenied"
	KindRateLimited      = "RateLimited"
	KindSessionNotFound  = "SessionNotFound"
	KindMessageInvalid   = "MessageInvalid"
	KindInternal         = "InternalError"
)

// Kind maps a domain error to its wire kind.
// Unknown errors collapse to InternalError so no internal detail leaks to the actor.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNameInvalid):
		return KindNameInvalid
	case errors.Is(err, ErrNameTaken):
		return KindNameTaken
	case errors.Is(err, ErrNotJoined):
		return KindNotJoined
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrSessionNotFound):
		return KindSessionNotFound
	case errors.Is(err, ErrMessageInvalid):
		return KindMessageInvalid
	default:
		return KindInternal
	}
}

// Message returns the text surfaced to the actor.
// Internal errors are replaced by a generic failure message.
func Message(err error) string {
	if Kind(err) == KindInternal {
		return ErrInternal.Error()
	}
	return err.Error()
}
