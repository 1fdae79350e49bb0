package authflow

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport boundary.
type Kind uint8

const (
	// KindInternal covers store, notifier and other infrastructure failures.
	KindInternal Kind = iota
	// KindBadRequest is missing or invalid input.
	KindBadRequest
	// KindUnauthenticated is a failed credential or token check.
	KindUnauthenticated
	// KindConflict is a duplicate registration.
	KindConflict
	// KindForbidden is an authenticated caller acting outside its rights.
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified, user-presentable failure. Message is safe to show
// to clients; Err carries the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func badRequest(msg string) *Error      { return &Error{Kind: KindBadRequest, Message: msg} }
func unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }

var (
	ErrMissingRegistration   = badRequest("Please provide name, email and password")
	ErrEmailExists           = &Error{Kind: KindConflict, Message: "Email already exists"}
	ErrVerificationFailed    = unauthenticated("Verification Failed")
	ErrMissingCredentials    = badRequest("Please provide email and password")
	ErrInvalidCredentials    = unauthenticated("Invalid Credentials")
	ErrEmailUnverified       = badRequest("Please verify your email")
	ErrMissingEmail          = badRequest("Please provide valid email.")
	ErrUnknownEmail          = badRequest("No user with email")
	ErrMissingResetFields    = badRequest("Please provide all values.")
	ErrAuthenticationInvalid = unauthenticated("Authentication Invalid")
	ErrForbidden             = &Error{Kind: KindForbidden, Message: "Not authorized to access this route"}
)

var (
	// ErrUserNotFound is returned by a UserStore lookup that matches nothing.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by UserStore.Create when the email is taken.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrEngineNotReady is returned by operations on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

func unknownEmail(email string) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf("No user with email: %s", email), Err: ErrUnknownEmail}
}

func unknownUserID(id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("No user with id : %s", id), Err: ErrUserNotFound}
}

// internalError hides cause from clients while keeping it for errors.Is and logs.
func internalError(op string, cause error) error {
	return fmt.Errorf("authflow: %s: %w", op, cause)
}
