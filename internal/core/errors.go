package core

import (
	"errors"
	"fmt"
)

// Code classifies a handler failure for the originating session.
// Errors are never broadcast, only sent back to the sender.
type Code string

const (
	CodeNotInRoom     Code = "not_in_room"
	CodeChannelDenied Code = "channel_denied"
	CodeRateLimited   Code = "rate_limited"
	CodeUpstream      Code = "upstream"
	CodeValidation    Code = "validation"
	CodeInternal      Code = "internal"
)

type Error struct {
	Code   Code
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

func NewError(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

// UpstreamError wraps a collaborator failure. The cause is kept for
// logs but never leaves the process.
func UpstreamError(err error) *Error {
	return &Error{Code: CodeUpstream, Reason: "upstream failure", cause: err}
}

func ValidationError(reason string) *Error {
	return &Error{Code: CodeValidation, Reason: reason}
}

// AsError classifies err, falling back to a generic internal error so
// internal detail never reaches a client.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Reason: "internal error", cause: err}
}
