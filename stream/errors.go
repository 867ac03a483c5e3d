package stream

import "fmt"

// TransportError reports a socket-level failure: connect timeout,
// handshake failure, or a read/write error on an established
// connection (§7). It is always recoverable by reconnecting.
type TransportError struct {
	Context string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %s", e.Context, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
