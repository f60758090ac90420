// Package wire holds the error taxonomy and the small JSON helpers shared by
// the transcription and subtitle job clients.
package wire

import (
	"fmt"
	"strings"
)

// Kind classifies an Error
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindTransport
	KindDeserialization
	KindUnexpectedResponseShape
	KindRequestBuild
	KindNoExtension
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindDeserialization:
		return "deserialization"
	case KindUnexpectedResponseShape:
		return "unexpected response shape"
	case KindRequestBuild:
		return "request build"
	case KindNoExtension:
		return "no file extension"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is returned by every package in this module
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "record submit"
	Op string
	// StatusCode is the HTTP status when the failure came from a response
	StatusCode int
	Err        error
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrConfiguration           = &Error{Kind: KindConfiguration}
	ErrTransport               = &Error{Kind: KindTransport}
	ErrDeserialization         = &Error{Kind: KindDeserialization}
	ErrUnexpectedResponseShape = &Error{Kind: KindUnexpectedResponseShape}
	ErrRequestBuild            = &Error{Kind: KindRequestBuild}
	ErrNoExtension             = &Error{Kind: KindNoExtension}
	ErrIO                      = &Error{Kind: KindIO}
)

// Errorf builds an *Error of the given kind. A nil err is allowed.
func Errorf(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.StatusCode == 0 && t.Kind == e.Kind
}
