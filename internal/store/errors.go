package store

import (
	"errors"
	"fmt"

	"github.com/threadkit/internal/gateway"
)

// ErrorKind classifies store operation failures.
type ErrorKind string

const (
	// KindValidation: bad input caught before any network call.
	KindValidation ErrorKind = "validation"
	// KindAuthorization: the actor may not perform the operation; never
	// attempted against the host.
	KindAuthorization ErrorKind = "authorization"
	// KindNetwork: transient transport failure; the optimistic delta was
	// rolled back and the operation may be retried by the user.
	KindNetwork ErrorKind = "network"
	// KindNotFound: the remote target no longer exists.
	KindNotFound ErrorKind = "not_found"
)

// OpError is a classified failure of a single store operation. Failures are
// local to the operation that raised them; the rest of the thread state is
// untouched.
type OpError struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *OpError) Unwrap() error { return e.Err }

func validationErr(op, message string) *OpError {
	return &OpError{Kind: KindValidation, Op: op, Message: message}
}

func authorizationErr(op, message string) *OpError {
	return &OpError{Kind: KindAuthorization, Op: op, Message: message}
}

// remoteErr classifies a gateway failure: 404s become KindNotFound,
// everything else is a recoverable network failure.
func remoteErr(op string, err error) *OpError {
	if gateway.IsNotFound(err) {
		return &OpError{Kind: KindNotFound, Op: op, Message: "target no longer exists", Err: err}
	}
	return &OpError{Kind: KindNetwork, Op: op, Message: "host request failed", Err: err}
}

// KindOf returns the classification of err, or "" when err is not an OpError.
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
