package session

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
)

var upgrader = websocket.Upgrader{}

func ptr[T any](v T) *T { return &v }

// encodeHeader and encodeLabelsFrame build the raw wire bytes for a
// "#labels" message, duplicating just enough of frame's CBOR grammar
// to drive these tests without exporting test-only helpers across
// package boundaries.
func encodeHeader(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteByte(0xA2) // map, 2 entries
	buf.WriteByte(0x62)
	buf.WriteString("op")
	buf.WriteByte(0x01) // unsigned 1
	buf.WriteByte(0x61)
	buf.WriteString("t")
	s := "#labels"
	buf.WriteByte(0x60 | byte(len(s)))
	buf.WriteString(s)
	return buf.Bytes()
}

func encodeLabelsFrame(t *testing.T, seq int64, labels []*comatproto.LabelDefs_Label) []byte {
	t.Helper()
	header := encodeHeader(t)

	var body bytes.Buffer
	msg := &comatproto.LabelSubscribeLabels_Labels{Seq: seq, Labels: labels}
	if err := msg.MarshalCBOR(&body); err != nil {
		t.Fatalf("MarshalCBOR: %v", err)
	}

	return append(header, body.Bytes()...)
}

func testLabel(src, uri, val, cts string, neg bool) *comatproto.LabelDefs_Label {
	l := &comatproto.LabelDefs_Label{Ver: ptr(int64(1)), Src: src, Uri: uri, Val: val, Cts: cts}
	if neg {
		l.Neg = ptr(true)
	}
	return l
}

// newTestServer starts a websocket endpoint that sends the given raw
// frames, then goes silent so the session's stream_timeout fires Idle.
func newTestServer(t *testing.T, frames [][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
				return
			}
		}
		time.Sleep(2 * time.Second)
	}))
}

func hostOf(t *testing.T, server *httptest.Server) string {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	return u.Host
}

// TestScenarioS1 mirrors the spec's S1: a single positive label,
// cursor and counters advance accordingly, and the effective set
// contains exactly that label.
func TestScenarioS1(t *testing.T) {
	frames := [][]byte{
		encodeLabelsFrame(t, 1, []*comatproto.LabelDefs_Label{
			testLabel("did:plc:a", "did:plc:b", "spam", "2024-01-01T00:00:00Z", false),
		}),
	}
	server := newTestServer(t, frames)
	defer server.Close()

	sess, err := New(Options{
		Host:           hostOf(t, server),
		Scheme:         "ws",
		StreamTimeout:  100 * time.Millisecond,
		ConnectTimeout: time.Second,
		BufferSize:     10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := sess.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FinalCursor != 1 {
		t.Errorf("FinalCursor = %d, want 1", summary.FinalCursor)
	}
	if summary.TotalLabelsSeen != 1 {
		t.Errorf("TotalLabelsSeen = %d, want 1", summary.TotalLabelsSeen)
	}
	if len(summary.EffectiveLabels) != 1 {
		t.Fatalf("EffectiveLabels = %+v, want exactly one entry", summary.EffectiveLabels)
	}
	entry := summary.EffectiveLabels[0]
	if entry.Src != "did:plc:a" || entry.Val != "spam" || !entry.Kind.Account || entry.Count != 1 {
		t.Errorf("entry = %+v, want did:plc:a/spam/Account/count=1", entry)
	}

	lines := summary.Render()
	if len(lines) != 2 {
		t.Fatalf("Render() = %v, want a header line plus one entry line", lines)
	}
	if want := "did:plc:a labels 1 x: spam -> Account"; lines[1] != want {
		t.Errorf("Render()[1] = %q, want %q", lines[1], want)
	}
}

// TestScenarioS2 mirrors S2: a negation of the same key drives the
// effective set back to empty.
func TestScenarioS2(t *testing.T) {
	frames := [][]byte{
		encodeLabelsFrame(t, 1, []*comatproto.LabelDefs_Label{
			testLabel("did:plc:a", "did:plc:b", "spam", "2024-01-01T00:00:00Z", false),
		}),
		encodeLabelsFrame(t, 2, []*comatproto.LabelDefs_Label{
			testLabel("did:plc:a", "did:plc:b", "spam", "2024-01-02T00:00:00Z", true),
		}),
	}
	server := newTestServer(t, frames)
	defer server.Close()

	sess, err := New(Options{
		Host:           hostOf(t, server),
		Scheme:         "ws",
		StreamTimeout:  100 * time.Millisecond,
		ConnectTimeout: time.Second,
		BufferSize:     10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := sess.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FinalCursor != 2 {
		t.Errorf("FinalCursor = %d, want 2", summary.FinalCursor)
	}
	if len(summary.EffectiveLabels) != 0 {
		t.Errorf("EffectiveLabels = %+v, want none (negated)", summary.EffectiveLabels)
	}
}

// TestScenarioS5 mirrors S5: no frames at all, the idle timeout fires,
// and the session finalizes successfully.
func TestScenarioS5(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	sess, err := New(Options{
		Host:           hostOf(t, server),
		Scheme:         "ws",
		StreamTimeout:  50 * time.Millisecond,
		ConnectTimeout: time.Second,
		BufferSize:     10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := sess.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FinalCursor != 0 {
		t.Errorf("FinalCursor = %d, want 0 (no frames processed)", summary.FinalCursor)
	}
	if summary.TotalLabelsSeen != 0 {
		t.Errorf("TotalLabelsSeen = %d, want 0", summary.TotalLabelsSeen)
	}
}

// TestScenarioS6 mirrors S6: a record-target URI classifies by its
// collection.
func TestScenarioS6(t *testing.T) {
	frames := [][]byte{
		encodeLabelsFrame(t, 1, []*comatproto.LabelDefs_Label{
			testLabel("did:plc:a", "at://did:plc:x/app.bsky.feed.post/abc", "spam", "2024-01-01T00:00:00Z", false),
		}),
	}
	server := newTestServer(t, frames)
	defer server.Close()

	sess, err := New(Options{
		Host:           hostOf(t, server),
		Scheme:         "ws",
		StreamTimeout:  100 * time.Millisecond,
		ConnectTimeout: time.Second,
		BufferSize:     10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := sess.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.EffectiveLabels) != 1 {
		t.Fatalf("EffectiveLabels = %+v, want one entry", summary.EffectiveLabels)
	}
	kind := summary.EffectiveLabels[0].Kind
	if !kind.Record || kind.Kind != "app.bsky.feed.post" {
		t.Errorf("Kind = %+v, want Record{kind:\"app.bsky.feed.post\"}", kind)
	}
}

// TestSummaryGroupsByValAndKindAndTagsGlobalLabels covers the §4.3
// supplement: effective assertions from the same source, with the
// same value and target kind but different target URIs, collapse into
// one counted SummaryEntry, and a well-known global label value gets
// the "(global)" tag in Render's output.
func TestSummaryGroupsByValAndKindAndTagsGlobalLabels(t *testing.T) {
	frames := [][]byte{
		encodeLabelsFrame(t, 1, []*comatproto.LabelDefs_Label{
			testLabel("did:plc:a", "did:plc:x", "porn", "2024-01-01T00:00:00Z", false),
			testLabel("did:plc:a", "did:plc:y", "porn", "2024-01-01T00:00:00Z", false),
		}),
	}
	server := newTestServer(t, frames)
	defer server.Close()

	sess, err := New(Options{
		Host:           hostOf(t, server),
		Scheme:         "ws",
		StreamTimeout:  100 * time.Millisecond,
		ConnectTimeout: time.Second,
		BufferSize:     10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := sess.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.EffectiveLabels) != 1 {
		t.Fatalf("EffectiveLabels = %+v, want exactly one grouped entry", summary.EffectiveLabels)
	}
	entry := summary.EffectiveLabels[0]
	if entry.Count != 2 || !entry.Global {
		t.Errorf("entry = %+v, want count=2 and Global=true", entry)
	}

	lines := summary.Render()
	if want := "did:plc:a labels 2 x: porn (global) -> Account"; lines[1] != want {
		t.Errorf("Render()[1] = %q, want %q", lines[1], want)
	}
}
