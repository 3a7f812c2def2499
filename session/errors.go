package session

import "errors"

var (
	// ErrProtocolError is returned when the first packet on a connection is
	// not CONNECT.
	ErrProtocolError = errors.New("session: protocol error")

	// ErrTerminated reports that a session has already moved to Terminated.
	// No operation in this package returns it; Enqueue on a terminated
	// session reports false instead.
	ErrTerminated = errors.New("session: already terminated")

	// errDisconnectRequested unwinds the dispatch loop on a client DISCONNECT;
	// Run treats it as a clean exit, not a failure.
	errDisconnectRequested = errors.New("session: disconnect requested")
)
