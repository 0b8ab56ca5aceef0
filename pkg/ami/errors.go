package ami

import "fmt"

// Kind enumerates the client's error categories. The core never
// returns a raw error for these situations — callers that want to
// branch on cause should use errors.As against *Error and switch on
// Kind.
type Kind string

const (
	// KindConnectFailed is returned by Transport.Connect on timeout or
	// refusal.
	KindConnectFailed Kind = "ConnectFailed"
	// KindAuthFailed is returned by Session.Login when Asterisk rejects
	// the credentials.
	KindAuthFailed Kind = "AuthFailed"
	// KindConnectionLost covers EOF, reset, write failure, and
	// Event: Shutdown.
	KindConnectionLost Kind = "ConnectionLost"
	// KindFramingError covers a malformed packet the Codec could not
	// fully parse.
	KindFramingError Kind = "FramingError"
	// KindCallbackError wraps a panic recovered from a user callback.
	KindCallbackError Kind = "CallbackError"
)

// Error is the client's error type: a Kind plus an optional wrapped
// cause, the same code+message+wrapped-err shape as an application
// error keyed on an HTTP status, but keyed on Kind instead since the
// core has no HTTP surface of its own.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ami.ErrConnectionLost) style sentinels work
// against the Kind rather than a specific instance.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

func newErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Sentinels usable with errors.Is; only Kind is compared (see Is above).
var (
	ErrConnectFailed  = &Error{Kind: KindConnectFailed}
	ErrAuthFailed     = &Error{Kind: KindAuthFailed}
	ErrConnectionLost = &Error{Kind: KindConnectionLost}
	ErrFramingError   = &Error{Kind: KindFramingError}
	ErrCallbackError  = &Error{Kind: KindCallbackError}
)
