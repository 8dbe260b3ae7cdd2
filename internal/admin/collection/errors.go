package collection

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies store failures.
type Kind string

const (
	KindNetwork           Kind = "network"
	KindHTTP              Kind = "http"
	KindValidation        Kind = "validation"
	KindInvalidArgument   Kind = "invalid_argument"
	KindMalformedResponse Kind = "malformed_response"
)

var (
	// ErrNetwork matches failures where the request never produced a response.
	ErrNetwork = errors.New("collection: network failure")
	// ErrHTTP matches non-2xx responses, including validation rejections.
	ErrHTTP = errors.New("collection: http failure")
	// ErrValidation matches 4xx rejections of create and update payloads.
	ErrValidation = errors.New("collection: validation failed")
	// ErrInvalidArgument matches local precondition failures. No request is issued.
	ErrInvalidArgument = errors.New("collection: invalid argument")
	// ErrMalformedResponse matches bodies that cannot be mapped to a record.
	ErrMalformedResponse = errors.New("collection: malformed response")
)

const networkFailureMessage = "Network request failed. Check your connection and try again."

// Error describes a failed store operation.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("collection")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	if e.Status > 0 {
		fmt.Fprintf(&b, "status %d: ", e.Status)
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports kind sentinels so callers can use errors.Is without type assertions.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrHTTP:
		return e.Kind == KindHTTP || e.Kind == KindValidation
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	}
	return false
}

// Message returns the text shown to staff for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		if ce.Kind == KindNetwork {
			return networkFailureMessage
		}
		if ce.Message != "" {
			return ce.Message
		}
		if ce.Err != nil {
			return ce.Err.Error()
		}
		return string(ce.Kind)
	}
	return err.Error()
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}

func invalidArgument(op, message string) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Message: message}
}

func malformed(op, message string) *Error {
	return &Error{Kind: KindMalformedResponse, Op: op, Message: message}
}
