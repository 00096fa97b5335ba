package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNoLogger       = errors.New("no logger provided")
	ErrNoConfig       = errors.New("no config provided")
	ErrNoClient       = errors.New("no provider client given")
	ErrNoAPIKey       = errors.New("no API key provided")
	ErrSessionClosed  = errors.New("call session is closed")
	ErrSocketNotOpen  = errors.New("socket is not open")
	ErrMissingSetting = errors.New("required setting is missing")
)

// Kind classifies a failure so callers can decide between propagating,
// logging, or exiting, instead of every boundary swallowing errors the
// same way.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration is a required setting absent at startup. Fatal.
	KindConfiguration
	// KindEligibility is a destination that failed the compliance gate.
	KindEligibility
	// KindConnection is a socket-level failure on either leg of a call.
	KindConnection
	// KindParse is a received message that is not well-formed.
	KindParse
	// KindProviderQuery is a failure consulting the telephony provider's
	// registries. Treated as an eligibility failure (fail closed).
	KindProviderQuery
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindEligibility:
		return "eligibility"
	case KindConnection:
		return "connection"
	case KindParse:
		return "parse"
	case KindProviderQuery:
		return "provider_query"
	default:
		return "unknown"
	}
}

// Error carries a taxonomy Kind alongside the wrapped cause. Op names the
// operation that failed, in the "package.Func" form.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the taxonomy kind from err, or KindUnknown when err was
// not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
