// Package errs implements the error-kind taxonomy from the service
// design: every failure that crosses a component boundary carries one
// of a small set of kinds so callers can dispatch on it instead of
// parsing strings.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure for policy dispatch.
type Kind int

const (
	// Unknown is the zero value; Of returns it for errors that were
	// never wrapped by this package.
	Unknown Kind = iota
	Config
	Transport
	Auth
	TLS
	Device
	Input
	FatalInit
	Transient
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Transport:
		return "transport"
	case Auth:
		return "auth"
	case TLS:
		return "tls"
	case Device:
		return "device"
	case Input:
		return "input"
	case FatalInit:
		return "fatal_init"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// kindError attaches a Kind to a wrapped cause.
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string { return fmt.Sprintf("%s: %v", e.kind, e.cause) }
func (e *kindError) Unwrap() error { return e.cause }
func (e *kindError) Cause() error  { return e.cause }

// New wraps err with kind, adding msg as context via pkg/errors so the
// original stack trace point is preserved for logging.
func New(kind Kind, msg string, err error) error {
	if err == nil {
		return &kindError{kind: kind, cause: errors.New(msg)}
	}
	return &kindError{kind: kind, cause: errors.Wrap(err, msg)}
}

// Of recovers the Kind attached to err, walking Unwrap/Cause chains.
// Returns Unknown if no kindError is found anywhere in the chain.
func Of(err error) Kind {
	for err != nil {
		if ke, ok := err.(*kindError); ok {
			return ke.kind
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return Unknown
}

// Is reports whether err carries kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
