package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed remote call
type ErrorKind int

const (
	Unknown ErrorKind = iota
	Unauthorized
	RateLimited
	ServiceUnavailable
	Timeout
	MalformedResponse
	ChannelClosed
)

var kindNames = map[ErrorKind]string{
	Unknown:            "unknown",
	Unauthorized:       "unauthorized",
	RateLimited:        "rate_limited",
	ServiceUnavailable: "service_unavailable",
	Timeout:            "timeout",
	MalformedResponse:  "malformed_response",
	ChannelClosed:      "channel_closed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseErrorKind is the inverse of String, used when decoding wire errors
func ParseErrorKind(s string) ErrorKind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return Unknown
}

var (
	// ErrTimeout is returned by a Sender when the per-call budget elapses
	ErrTimeout = errors.New("request timed out")
	// ErrChannelClosed is returned by a Sender once its counterpart is gone
	ErrChannelClosed = errors.New("channel closed")
)

// RemoteError is a classified failure of a remote call
type RemoteError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Err        error
}

// NewRemoteError creates a classified error
func NewRemoteError(kind ErrorKind, op string, err error) *RemoteError {
	return &RemoteError{Kind: kind, Op: op, Err: err}
}

func (e *RemoteError) Error() string {
	msg := e.Kind.String()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// StatusError builds a RemoteError from a non-2xx HTTP status
func StatusError(op string, status int, err error) *RemoteError {
	return &RemoteError{Kind: ClassifyStatus(status), Op: op, StatusCode: status, Err: err}
}

// ClassifyStatus maps an HTTP status code onto the error taxonomy
func ClassifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Unauthorized
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusServiceUnavailable:
		return ServiceUnavailable
	default:
		return Unknown
	}
}

// KindOf classifies any error returned along the remote call path
func KindOf(err error) ErrorKind {
	if err == nil {
		return Unknown
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	switch {
	case errors.Is(err, ErrChannelClosed):
		return ChannelClosed
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	return Unknown
}

// Retryable reports whether another attempt may succeed
func Retryable(kind ErrorKind) bool {
	switch kind {
	case RateLimited, ServiceUnavailable, Timeout, MalformedResponse:
		return true
	}
	return false
}

// Transient reports whether a failure counts toward the scheduler's circuit breaker
func Transient(kind ErrorKind) bool {
	switch kind {
	case RateLimited, ServiceUnavailable, Timeout, ChannelClosed:
		return true
	}
	return false
}
