package session

import "bsky.watch/labelclient/label"

// RecordHook exposes the insert/update/mark-suspicious seams a
// "retread" pass (replaying known-past seqs to detect mutated or
// vanished records) would need, without implementing that policy —
// per §9's open question, the source's retread logic is unfinished
// and intentionally out of scope here. Only Insert is ever called by
// this package; Update and MarkSuspicious exist so a future policy can
// attach without changing the orchestrator.
type RecordHook interface {
	Insert(a label.Assertion)
	Update(a label.Assertion)
	MarkSuspicious(a label.Assertion, reason string)
}

// noopHook discards every call. It is the default hook when a caller
// doesn't supply one.
type noopHook struct{}

func (noopHook) Insert(label.Assertion)                {}
func (noopHook) Update(label.Assertion)                {}
func (noopHook) MarkSuspicious(label.Assertion, string) {}
