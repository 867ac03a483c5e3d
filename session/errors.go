package session

import "fmt"

// ProtocolError reports a peer-sent op=-1 error frame or a seq that
// fails the monotonicity check (§7). It is surfaced to the retry loop
// as a recoverable-by-reconnect condition. An out-of-range seq is not
// a ProtocolError: the frame decoder rejects it with a
// frame.DecodeError, which ends the session without a retry.
type ProtocolError struct {
	Context string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error (%s): %s", e.Context, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// StorageError reports a durable-write failure (§7). The orchestrator
// logs it and keeps streaming; the failed assertion is not written
// again, since the cursor has already advanced past its seq and a
// later reconnect resumes after it.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConfigError reports an unparseable URL, a non-positive buffer size,
// or a missing resolver result (§7). It is fatal to the session.
type ConfigError struct {
	Context string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %s", e.Context, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
