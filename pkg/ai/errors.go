package ai

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindConfig          ErrorKind = "config_error"
	KindTimeout         ErrorKind = "timeout"
	KindAPI             ErrorKind = "api_error"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// Error is returned by every Client call that does not produce text.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("ai %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsConfigError(err error) bool { return kindOf(err) == KindConfig }
func IsTimeout(err error) bool { return kindOf(err) == KindTimeout }
func IsAPIError(err error) bool { return kindOf(err) == KindAPI }
func IsInvalidResponse(err error) bool { return kindOf(err) == KindInvalidResponse }

// HTTPError is returned by the HTTP providers for non-2xx responses.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 500 {
		body = body[:500] + "..."
	}
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, body)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }
