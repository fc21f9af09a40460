package errs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and reporting decisions.
type Kind string

const (
	Validation    Kind = "ValidationError"
	Network       Kind = "NetworkError"
	RateLimit     Kind = "RateLimitError"
	Provider      Kind = "ProviderError"
	Normalization Kind = "NormalizationError"
	Unknown       Kind = "UnknownError"
)

// Error is a typed failure. Message is safe to surface at the CLI
// boundary; Err holds the underlying cause for logs only.
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

func (e *Error) Unwrap() error { return e.Err }

// E builds a typed error. The message is formatted with args when given.
func E(kind Kind, msg string, args ...any) *Error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches a cause to a typed error.
func Wrap(kind Kind, err error, msg string, args ...any) *Error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind from err, walking the wrap chain.
// Untyped errors report Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Retryable reports whether a failure of this kind is worth retrying
// with backoff. Rate limiting is transient by definition; everything
// besides network trouble is not.
func Retryable(kind Kind) bool {
	return kind == Network || kind == RateLimit
}

type envelopeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type envelopeMeta struct {
	Version int `json:"version"`
}

// Envelope is the stable error shape surfaced at the command boundary.
type Envelope struct {
	OK    bool          `json:"ok"`
	Error envelopeError `json:"error"`
	Meta  envelopeMeta  `json:"meta"`
}

// FormatError renders err as the JSON error envelope. Internal detail
// (wrapped causes, stack context) never leaks into the message.
func FormatError(err error) string {
	kind := KindOf(err)
	msg := err.Error()
	var e *Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	env := Envelope{
		OK:    false,
		Error: envelopeError{Type: string(kind), Message: msg},
		Meta:  envelopeMeta{Version: 1},
	}
	b, merr := json.MarshalIndent(env, "", "  ")
	if merr != nil {
		return fmt.Sprintf(`{"ok":false,"error":{"type":"UnknownError","message":%q},"meta":{"version":1}}`, msg)
	}
	return string(b)
}
