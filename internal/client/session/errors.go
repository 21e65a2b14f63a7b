package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/brightroot/academy/internal/client/client"
)

// Kind classifies session failures.
type Kind int

const (
	KindUnclassified Kind = iota
	KindInvalidCredentials
	KindValidationFailed
	KindNetworkFailure
	KindTimedOut
	KindCorruptedLocalState
	KindSessionExpired
	KindBusy
	KindNotAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindValidationFailed:
		return "validation_failed"
	case KindNetworkFailure:
		return "network_failure"
	case KindTimedOut:
		return "timed_out"
	case KindCorruptedLocalState:
		return "corrupted_local_state"
	case KindSessionExpired:
		return "session_expired"
	case KindBusy:
		return "busy"
	case KindNotAuthenticated:
		return "not_authenticated"
	default:
		return "unclassified"
	}
}

// User-facing messages.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgLoginFailed        = "Login failed. Please try again."
	MsgRegistrationFailed = "Registration failed. Please try again."
	MsgNetworkFailure     = "Unable to reach the server. Check your connection and try again."
	MsgTimedOut           = "The server took too long to respond. Please try again."
	MsgSessionExpired     = "Your session has expired. Please sign in again."
	MsgSaveFailed         = "Could not save your session on this device."
	MsgReadFailed         = "Could not read your session on this device."
	MsgBusy               = "A sign-in request is already in progress."
	MsgNotAuthenticated   = "You are not signed in."
)

// Error is the only error type returned by Store operations. Error() is the
// message meant for the user; Err keeps the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrBusy             = &Error{Kind: KindBusy, Message: MsgBusy}
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated, Message: MsgNotAuthenticated}
)

// KindOf returns the Kind of err, or KindUnclassified when err is not a
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

// registerFieldPriority orders the signup validation fields whose first
// message becomes the error shown to the user.
var registerFieldPriority = []string{"username", "email", "password", client.NonFieldErrorsKey}

func classifyLoginError(err error) *Error {
	if e := classifyTransport(err); e != nil {
		return e
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return &Error{Kind: KindInvalidCredentials, Message: MsgInvalidCredentials, Err: err}
		case apiErr.Detail != "":
			return &Error{Kind: KindUnclassified, Message: apiErr.Detail, Err: err}
		}
		if msg := prioritizedFieldError(apiErr); msg != "" {
			return &Error{Kind: KindValidationFailed, Message: msg, Err: err}
		}
	}
	return &Error{Kind: KindUnclassified, Message: MsgLoginFailed, Err: err}
}

func classifyRegisterError(err error) *Error {
	if e := classifyTransport(err); e != nil {
		return e
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if msg := prioritizedFieldError(apiErr); msg != "" {
			return &Error{Kind: KindValidationFailed, Message: msg, Err: err}
		}
		if apiErr.Detail != "" {
			return &Error{Kind: KindUnclassified, Message: apiErr.Detail, Err: err}
		}
	}
	return &Error{Kind: KindUnclassified, Message: MsgRegistrationFailed, Err: err}
}

func classifyTransport(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, client.ErrTimeout):
		return &Error{Kind: KindTimedOut, Message: MsgTimedOut, Err: err}
	case errors.Is(err, client.ErrUnavailable):
		return &Error{Kind: KindNetworkFailure, Message: MsgNetworkFailure, Err: err}
	default:
		return nil
	}
}

func prioritizedFieldError(apiErr *client.APIError) string {
	for _, field := range registerFieldPriority {
		if msg := apiErr.FieldError(field); msg != "" {
			return msg
		}
	}
	return ""
}

// isRejection reports whether the backend refused a token, as opposed to
// being unreachable.
func isRejection(err error) bool {
	if errors.Is(err, client.ErrUnauthorized) {
		return true
	}
	var apiErr *client.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden
}
