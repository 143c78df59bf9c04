package mail

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindBackend covers any failure talking to or interpreting the mail backend.
	KindBackend Kind = iota
	// KindUnauthorized means the server-wide token was missing or wrong.
	KindUnauthorized
	// KindMissingBackendCredential means the per-call backend token was absent.
	KindMissingBackendCredential
	// KindValidation means a tool argument was malformed.
	KindValidation
	// KindNotFound means a referenced message does not exist.
	KindNotFound
)

// String returns the stable name used in tool error messages and metrics.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindMissingBackendCredential:
		return "missing_backend_credential"
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	default:
		return "backend_error"
	}
}

// Error is the error type returned by every Service operation.
type Error struct {
	Kind Kind
	// Op names the step that failed, e.g. "locate" or "query".
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of Op or Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized             = &Error{Kind: KindUnauthorized}
	ErrMissingBackendCredential = &Error{Kind: KindMissingBackendCredential}
	ErrValidation               = &Error{Kind: KindValidation}
	ErrNotFound                 = &Error{Kind: KindNotFound}
	ErrBackend                  = &Error{Kind: KindBackend}
)

// ErrFolderNotFound is wrapped in a KindBackend error when the account has
// no mailbox for a requested role. Backends return it from FolderByRole.
var ErrFolderNotFound = errors.New("folder not found")

// KindOf reports the Kind of err. Errors that are not *Error are treated as
// backend failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackend
}

func validationError(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// backendError wraps err as KindBackend unless it already carries a Kind.
func backendError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindBackend, Op: op, Err: err}
}

// NewValidationError returns a KindValidation error for a malformed argument
// detected outside the Service, e.g. by a transport decoding tool arguments.
func NewValidationError(op, format string, args ...any) error {
	return validationError(op, format, args...)
}
