package bridge

import (
	"errors"
	"strings"
)

// Kind categorizes a bridge error
type Kind string

const (
	KindBindingNotFound   Kind = "binding_not_found"
	KindMalformedReply    Kind = "malformed_reply"
	KindCallFailed        Kind = "call_failed"
	KindResolutionFailure Kind = "resolution_failure"
	KindDecodeFailure     Kind = "decode_failure"
)

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrBindingNotFound   = &Error{Kind: KindBindingNotFound}
	ErrMalformedReply    = &Error{Kind: KindMalformedReply}
	ErrCallFailed        = &Error{Kind: KindCallFailed}
	ErrResolutionFailure = &Error{Kind: KindResolutionFailure}
	ErrDecodeFailure     = &Error{Kind: KindDecodeFailure}
)

// Error is the structured error returned by the adapter, the surface and
// the resolver.
type Error struct {
	Kind    Kind
	Binding string
	Locator string
	Detail  string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Kind))

	if e.Binding != "" {
		b.WriteString(" [")
		b.WriteString(e.Binding)
		b.WriteByte(']')
	}

	if e.Locator != "" {
		b.WriteString(" for ")
		b.WriteString(e.Locator)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target has the same kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

func bindingNotFound(name string) *Error {
	return &Error{Kind: KindBindingNotFound, Binding: name, Detail: "no callable registered"}
}

func malformedReply(name, detail string, cause error) *Error {
	return &Error{Kind: KindMalformedReply, Binding: name, Detail: detail, Cause: cause}
}

func callFailed(name string, cause error) *Error {
	return &Error{Kind: KindCallFailed, Binding: name, Cause: cause}
}

// ResolutionFailure builds a resolution_failure error for locator
func ResolutionFailure(locator, detail string, cause error) *Error {
	return &Error{Kind: KindResolutionFailure, Binding: ResolveBinding, Locator: locator, Detail: detail, Cause: cause}
}

// DecodeFailure builds a decode_failure error for locator
func DecodeFailure(locator string, cause error) *Error {
	return &Error{Kind: KindDecodeFailure, Binding: ResolveBinding, Locator: locator, Detail: "malformed transport encoding", Cause: cause}
}
