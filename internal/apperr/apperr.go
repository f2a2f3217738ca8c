package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure so the RPC layer can report a stable code.
type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindInvalidInput
	KindUnsupportedToken
	KindExternalRead
	KindPriceUnavailable
	KindSwapUnavailable
	KindWallet
)

// Error carries a kind alongside a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a tagged error from a format string.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and a message prefix.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindInternal
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Code maps an error to its JSON-RPC error code.
func Code(err error) int {
	switch KindOf(err) {
	case KindConfig:
		return -32001
	case KindInvalidInput, KindUnsupportedToken:
		return -32602
	case KindExternalRead:
		return -32002
	case KindPriceUnavailable:
		return -32010
	case KindSwapUnavailable:
		return -32020
	case KindWallet:
		return -32030
	default:
		return -32603
	}
}
