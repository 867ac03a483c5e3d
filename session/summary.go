package session

import (
	"fmt"
	"sort"
	"time"

	"bsky.watch/labelclient/label"
)

// SummaryEntry is one (src, val, target kind) group of effective labels
// surfaced at finalize (§3's effective-set query, §4.3's supplement,
// §8 scenario S6's target classification). Grouped this way rather
// than one line per assertion, matching original_source/src/main.rs's
// finalize report, whose effective_counts BTreeMap groups by exactly
// this triple before printing.
type SummaryEntry struct {
	Src    string
	Val    string
	Kind   label.TargetKind
	Count  int
	Global bool
}

// Summary is the structured result handed back by Run, consumed by
// the CLI for its terminal report (§6's "terminal summary renderer",
// kept external to the core but shaped here so the renderer has
// something concrete to print).
type Summary struct {
	FinalCursor            int64
	TotalLabelsSeen        int64
	LatestCreateTimestamp  string
	LabelerDIDs            []string
	EffectiveLabels        []SummaryEntry
	ReconnectCount         int
	FinalState             State
}

// summaryGroupKey groups effective assertions the way
// original_source/src/main.rs's effective_counts BTreeMap does: by
// source, label value, and target kind, discarding the individual
// target URI.
type summaryGroupKey struct {
	Src  string
	Val  string
	Kind label.TargetKind
}

func buildSummary(cursorValue int64, r reducerView, reconnectCount int, finalState State) Summary {
	now := time.Now()
	effective := r.EffectiveLabels(now)

	counts := make(map[summaryGroupKey]int)
	var order []summaryGroupKey
	for _, a := range effective {
		key := summaryGroupKey{Src: a.Key.Src, Val: a.Key.Val, Kind: label.ClassifyTarget(a.Key.TargetURI)}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].Src != order[j].Src {
			return order[i].Src < order[j].Src
		}
		if order[i].Val != order[j].Val {
			return order[i].Val < order[j].Val
		}
		return order[i].Kind.String() < order[j].Kind.String()
	})

	entries := make([]SummaryEntry, 0, len(order))
	for _, key := range order {
		entries = append(entries, SummaryEntry{
			Src:    key.Src,
			Val:    key.Val,
			Kind:   key.Kind,
			Count:  counts[key],
			Global: label.GlobalLabels[key.Val],
		})
	}

	return Summary{
		FinalCursor:           cursorValue,
		TotalLabelsSeen:       r.TotalLabelsSeen(),
		LatestCreateTimestamp: r.LatestCreateTimestamp(),
		LabelerDIDs:           r.LabelerDIDs(),
		EffectiveLabels:       entries,
		ReconnectCount:        reconnectCount,
		FinalState:            finalState,
	}
}

// Render renders the summary as human-readable lines: one header line,
// then one line per (src, val, kind) group in the shape
// "<src> labels <count> x: <val>[ (global)] -> <kind>", matching
// original_source/src/main.rs's finalize report and spec.md §8
// scenario S1's literal expected line ("did:plc:a labels 1 x: spam ->
// Account").
func (s Summary) Render() []string {
	lines := make([]string, 0, len(s.EffectiveLabels)+1)
	lines = append(lines, fmt.Sprintf(
		"cursor=%d total_labels_seen=%d labeler_dids=%v reconnects=%d",
		s.FinalCursor, s.TotalLabelsSeen, s.LabelerDIDs, s.ReconnectCount,
	))
	for _, e := range s.EffectiveLabels {
		globalTag := ""
		if e.Global {
			globalTag = " (global)"
		}
		lines = append(lines, fmt.Sprintf("%s labels %d x: %s%s -> %s", e.Src, e.Count, e.Val, globalTag, e.Kind))
	}
	return lines
}

// reducerView is the subset of *reducer.Reducer the summary needs,
// defined here so this file doesn't import reducer directly (avoids a
// cycle risk if reducer ever wants summary types). buildSummary takes
// it; *reducer.Reducer satisfies it structurally.
type reducerView interface {
	EffectiveLabels(now time.Time) []label.Assertion
	TotalLabelsSeen() int64
	LatestCreateTimestamp() string
	LabelerDIDs() []string
}
