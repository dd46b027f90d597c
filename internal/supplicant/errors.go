package supplicant

import "errors"

// Sentinel errors for the failure kinds a caller can observe. Reply
// handlers surface exactly one of these via a completion callback; signal
// handlers are infallible and never return them, logging and continuing
// instead.
var (
	// ErrPeerUnavailable indicates there is no connection to the supplicant
	// service. Control operations reject immediately with this error.
	ErrPeerUnavailable = errors.New("supplicant: peer unavailable")

	// ErrTransport indicates a bus GetAll or method call failed at the
	// transport layer.
	ErrTransport = errors.New("supplicant: transport error")

	// ErrNotFound indicates a path was expected to already be present in
	// the replica but was not.
	ErrNotFound = errors.New("supplicant: not found")

	// ErrInvalidReply indicates a required field was missing from a peer
	// reply.
	ErrInvalidReply = errors.New("supplicant: invalid reply")

	// ErrOutOfMemory indicates record allocation failed. In this
	// implementation it also stands in for the Go-native equivalent of a
	// resource limit: a full control-operation command queue.
	ErrOutOfMemory = errors.New("supplicant: out of memory")

	// ErrMalformedIE indicates an information element failed its length
	// checks. It is never returned to a caller: malformed elements are
	// silently dropped, and the IE parsers yield zero flags without
	// producing or logging this value.
	ErrMalformedIE = errors.New("supplicant: malformed information element")
)

// Errno maps a supplicant error to a negative errno value. Callers that
// don't need C-ABI-style integers should use errors.Is against the sentinels
// above instead; Errno exists for exit-code mapping and for any future
// cgo-facing shim.
func Errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrPeerUnavailable):
		return -EFAULT
	case errors.Is(err, ErrTransport):
		return -EIO
	case errors.Is(err, ErrNotFound):
		return -ENOENT
	case errors.Is(err, ErrInvalidReply):
		return -EINVAL
	case errors.Is(err, ErrOutOfMemory):
		return -ENOMEM
	default:
		return -EIO
	}
}

// errno.h values, kept local so this package has no cgo dependency.
const (
	EIO    = 5
	ENOMEM = 12
	EFAULT = 14
	EINVAL = 22
	ENOENT = 2
)
