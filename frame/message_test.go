package frame

import (
	"bytes"
	"testing"

	comatproto "github.com/bluesky-social/indigo/api/atproto"

	"bsky.watch/labelclient/label"
)

func ptr[T any](v T) *T { return &v }

func buildLabelsMessage(t *testing.T, seq int64, labels []*comatproto.LabelDefs_Label) []byte {
	t.Helper()

	header := encodeTestHeader(t, 1, ptr("#labels"))

	var body bytes.Buffer
	msg := &comatproto.LabelSubscribeLabels_Labels{Seq: seq, Labels: labels}
	if err := msg.MarshalCBOR(&body); err != nil {
		t.Fatalf("MarshalCBOR: %v", err)
	}

	return append(header, body.Bytes()...)
}

func TestDecodeLabelsMessage(t *testing.T) {
	payload := buildLabelsMessage(t, 1, []*comatproto.LabelDefs_Label{
		{Ver: ptr(int64(1)), Src: "did:plc:a", Uri: "did:plc:b", Val: "spam", Cts: "2024-01-01T00:00:00Z"},
	})

	msg, err := Decode(payload, label.NewInterner())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Labels == nil {
		t.Fatal("Labels is nil")
	}
	if msg.Labels.Seq != 1 {
		t.Errorf("Seq = %d, want 1", msg.Labels.Seq)
	}
	if len(msg.Labels.Assertions) != 1 {
		t.Fatalf("len(Assertions) = %d, want 1", len(msg.Labels.Assertions))
	}
	a := msg.Labels.Assertions[0]
	if a.Key.Src != "did:plc:a" || a.Key.TargetURI != "did:plc:b" || a.Key.Val != "spam" {
		t.Errorf("assertion key = %+v", a.Key)
	}
	if msg.TrailingBytes != 0 {
		t.Errorf("TrailingBytes = %d, want 0", msg.TrailingBytes)
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	payload := buildLabelsMessage(t, 1, []*comatproto.LabelDefs_Label{
		{Ver: ptr(int64(2)), Src: "did:plc:a", Uri: "did:plc:b", Val: "spam", Cts: "2024-01-01T00:00:00Z"},
	})

	msg, err := Decode(payload, label.NewInterner())
	if err == nil {
		t.Fatal("expected an error for unsupported label version, got nil")
	}
	if msg != nil && msg.Labels != nil {
		t.Error("Labels should not be populated on a version-reject error")
	}
}

func TestDecodeRejectsMissingVersion(t *testing.T) {
	payload := buildLabelsMessage(t, 1, []*comatproto.LabelDefs_Label{
		{Src: "did:plc:a", Uri: "did:plc:b", Val: "spam", Cts: "2024-01-01T00:00:00Z"},
	})

	if _, err := Decode(payload, label.NewInterner()); err == nil {
		t.Fatal("expected an error for a missing label version, got nil")
	}
}

func TestDecodeUnknownMessageType(t *testing.T) {
	header := encodeTestHeader(t, 1, ptr("#unknownFutureType"))
	msg, err := Decode(header, label.NewInterner())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !msg.UnknownType {
		t.Error("UnknownType = false, want true")
	}
}

func TestDecodeErrorFrame(t *testing.T) {
	header := encodeTestHeader(t, -1, nil)

	var errBody bytes.Buffer
	errBody.WriteByte(0xA2) // map with 2 entries
	errBody.WriteByte(0x65)
	errBody.WriteString("error")
	writeTestString(&errBody, "ConsumerTooSlow")
	errBody.WriteByte(0x67)
	errBody.WriteString("message")
	writeTestString(&errBody, "catch up")

	payload := append(header, errBody.Bytes()...)

	msg, err := Decode(payload, label.NewInterner())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Error == nil {
		t.Fatal("Error is nil")
	}
	if msg.Error.Error != "ConsumerTooSlow" || msg.Error.Message != "catch up" {
		t.Errorf("Error = %+v", msg.Error)
	}
}
