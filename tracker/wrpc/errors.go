package wrpc

import (
	"errors"

	"github.com/swdunlop/tracker-go/tracker/schema"
)

var (
	// ErrPathNotFound is returned when no procedure or router is registered at a path.
	ErrPathNotFound = errors.New(`path not found`)

	// ErrNotAProcedure is returned when a path names a router rather than a procedure.
	ErrNotAProcedure = errors.New(`path is not a procedure`)

	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = schema.ErrInvalid

	// ErrClosed is returned by calls that were still outstanding when their client or connection closed.
	ErrClosed = errors.New(`connection closed`)

	// ErrResponded is returned when a second response is attempted for the same request.
	ErrResponded = errors.New(`request already answered`)
)

// UnknownError is the message sent when a resolver fails without a message.
const UnknownError = `Unknown error`

// A RemoteError is an error response received by a client.  Only the message survives the trip; the type and stack
// of the original error are not preserved.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// message returns the text sent to a client for a failure.
func message(err error) string {
	if err == nil {
		return UnknownError
	}
	if msg := err.Error(); msg != `` {
		return msg
	}
	return UnknownError
}
