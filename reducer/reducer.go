// Package reducer implements the in-memory effective-label map (§4.3):
// for each incoming assertion it tracks the labeler DID set, the
// latest create timestamp observed, a running total, and the current
// effective assertion per label.Key.
//
// Grounded on bsky.watch/labeler/server/core_logic.go's
// locked_applyLabelCreation/Removal nesting (the same "last write at
// this key wins" discipline, generalized here from per-CID removal to
// full negation-as-overwrite) and original_source/src/main.rs's
// LabelStore.
package reducer

import (
	"sort"
	"time"

	"golang.org/x/exp/maps"

	"bsky.watch/labelclient/label"
)

// Reducer holds the effective map and the session counters described
// in §3's Session state and §4.3.
type Reducer struct {
	effective   map[label.Key]label.Assertion
	labelerDIDs map[string]bool

	totalLabelsSeen       int64
	latestCreateTimestamp string

	// RefuseOlderCreateTimestamp implements the optional hardening
	// documented in §4.3 and §9: when set, an incoming assertion does
	// not overwrite an incumbent whose CreateTimestamp strictly sorts
	// after it. Off by default, matching original_source's behavior of
	// accepting arrival order as authoritative.
	RefuseOlderCreateTimestamp bool
}

// New returns an empty Reducer.
func New() *Reducer {
	return &Reducer{
		effective:   make(map[label.Key]label.Assertion),
		labelerDIDs: make(map[string]bool),
	}
}

// SeedKnownDID records the labeler's expected src DID before the
// stream begins, as "lookup" mode sessions do (§3's LabelerIdentity
// set invariant). It fails if a DID has already been recorded.
func (r *Reducer) SeedKnownDID(did string) error {
	if len(r.labelerDIDs) != 0 {
		return errAlreadyKnown
	}
	r.labelerDIDs[did] = true
	return nil
}

var errAlreadyKnown = &seedError{}

type seedError struct{}

func (*seedError) Error() string { return "reducer already has a known labeler did" }

// Apply implements the five-step update in §4.3. It returns true if
// the assertion was refused by RefuseOlderCreateTimestamp hardening
// (the assertion is still counted and reflected in the DID set and
// latest-timestamp tracking either way).
func (r *Reducer) Apply(a label.Assertion) (refused bool) {
	if !r.labelerDIDs[a.Key.Src] {
		r.labelerDIDs[a.Key.Src] = true
	}

	if a.CreateTimestamp > r.latestCreateTimestamp {
		r.latestCreateTimestamp = a.CreateTimestamp
	}

	r.totalLabelsSeen++

	if r.RefuseOlderCreateTimestamp {
		if incumbent, ok := r.effective[a.Key]; ok && incumbent.CreateTimestamp > a.CreateTimestamp {
			return true
		}
	}

	r.effective[a.Key] = a
	return false
}

// TotalLabelsSeen returns the running count of assertions applied.
func (r *Reducer) TotalLabelsSeen() int64 {
	return r.totalLabelsSeen
}

// LatestCreateTimestamp returns the greatest create_timestamp observed
// so far, or "" if none have been applied yet.
func (r *Reducer) LatestCreateTimestamp() string {
	return r.latestCreateTimestamp
}

// LabelerDIDs returns the sorted set of src DIDs observed this session.
//
// Grounded on bsky.watch/labeler/server/server.go's use of
// golang.org/x/exp/maps.Keys to pull a map's keys out for batch
// processing; sort.Strings still does the ordering maps.Keys doesn't
// provide.
func (r *Reducer) LabelerDIDs() []string {
	dids := maps.Keys(r.labelerDIDs)
	sort.Strings(dids)
	return dids
}

// EffectiveCount returns the number of keys currently tracked,
// including negated and expired ones.
func (r *Reducer) EffectiveCount() int {
	return len(r.effective)
}

// EffectiveLabels implements the effective-set query in §4.3: every
// tracked assertion except those negated or expired as of now.
func (r *Reducer) EffectiveLabels(now time.Time) []label.Assertion {
	out := make([]label.Assertion, 0, len(r.effective))
	for _, a := range r.effective {
		if a.Neg || a.Expired(now) {
			continue
		}
		out = append(out, a)
	}
	return out
}
