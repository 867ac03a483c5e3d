package resolver

import "fmt"

// ResolutionError reports a failure at one step of identity
// resolution: DNS lookup, HTTPS well-known fetch, or DID document
// retrieval (§7).
type ResolutionError struct {
	Context string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error (%s): %s", e.Context, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
