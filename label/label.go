// Package label implements the typed representation of an atproto
// label assertion, grounded on bsky.watch/labeler's server/model.go
// Entry type and original_source/src/lib.rs's LabelRecord.
package label

import (
	"fmt"
	"time"
)

// Key identifies an assertion by source, target and label value.
// Two assertions with the same Key refer to the same (source, target,
// value) triple and only the most recently arrived one is effective.
type Key struct {
	Src       string
	TargetURI string
	Val       string
}

// Assertion is a single versioned statement by Key.Src that
// Key.TargetURI carries the label Key.Val.
type Assertion struct {
	Key Key

	Seq             int64
	CreateTimestamp string
	ExpiryTimestamp string // empty means "no expiration"
	Neg             bool
	TargetCID       string // empty means "not set"
	Sig             []byte
}

// SupportedVersion is the only label record version this client accepts.
const SupportedVersion = 1

// Expired reports whether the assertion's expiry timestamp, if any, is
// at or before now. A record with no ExpiryTimestamp never expires.
func (a *Assertion) Expired(now time.Time) bool {
	if a.ExpiryTimestamp == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, a.ExpiryTimestamp)
	if err != nil {
		// An unparseable expiry timestamp is treated as already expired,
		// since we can't prove the label is still in force.
		return true
	}
	return !t.After(now)
}

// TargetKind classifies a TargetURI for reporting purposes.
type TargetKind struct {
	Account bool
	Record  bool
	Kind    string // collection, only set when Record is true
}

func (k TargetKind) String() string {
	switch {
	case k.Account:
		return "Account"
	case k.Record:
		return fmt.Sprintf("Record{kind:%q}", k.Kind)
	default:
		return "Unknown"
	}
}

// ClassifyTarget implements the TargetKind classification described in
// design notes: a bare DID is an account target, an at://did/collection/rkey
// URI is a record target (classified by its collection), anything else
// is unknown.
func ClassifyTarget(uri string) TargetKind {
	const prefix = "at://"
	if len(uri) > len(prefix) && uri[:len(prefix)] == prefix {
		rest := uri[len(prefix):]
		parts := splitN(rest, '/', 3)
		if len(parts) >= 2 && parts[1] != "" {
			return TargetKind{Record: true, Kind: parts[1]}
		}
		return TargetKind{}
	}
	if len(uri) > len("did:") && uri[:len("did:")] == "did:" {
		return TargetKind{Account: true}
	}
	return TargetKind{}
}

func splitN(s string, sep byte, n int) []string {
	var out []string
	start := 0
	for i := 0; i < len(s) && len(out) < n-1; i++ {
		if s[i] == sep {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// GlobalLabels lists the well-known global moderation label values
// surfaced distinctly in the session summary.
var GlobalLabels = map[string]bool{
	"!hide":         true,
	"!warn":         true,
	"porn":          true,
	"sexual":        true,
	"graphic-media": true,
	"nudity":        true,
}
