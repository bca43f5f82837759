package gateway

import "errors"

// AuthReason classifies why a handshake was rejected.
type AuthReason string

const (
	AuthMissing AuthReason = "missing"
	AuthInvalid AuthReason = "invalid"
)

// AuthError rejects a connection at handshake. The client must reconnect
// with a valid credential; there is no retry on the same connection.
type AuthError struct {
	Reason AuthReason
}

func (e *AuthError) Error() string {
	if e.Reason == AuthMissing {
		return "authentication failed: no credential supplied"
	}
	return "authentication failed: invalid credential"
}

// ProtocolReason classifies a rejected inbound event.
type ProtocolReason string

const (
	NotAuthenticated ProtocolReason = "not_authenticated"
	UnknownEvent     ProtocolReason = "unknown_event"
)

// ProtocolError drops the offending event; the connection stays open.
type ProtocolError struct {
	Reason ProtocolReason
}

func (e *ProtocolError) Error() string {
	if e.Reason == NotAuthenticated {
		return "not authenticated"
	}
	return "unknown event"
}

// ErrNotFound marks a room/message/user that did not resolve. Surfaced to
// the originating connection only; never fatal.
var ErrNotFound = errors.New("not found")
