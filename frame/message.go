// Package frame implements the event-stream frame codec (§4.1): each
// binary message carries two concatenated CBOR map values, a header
// followed by a body, with no length prefix between them.
//
// Grounded on bsky.watch/labeler/cmd/clone's prefix-stripping read
// loop (which recognized one fixed header shape) and
// original_source/src/main.rs's GetCmd::header_type (the general
// {op, t} grammar); the "#labels" body is decoded with indigo's
// generated comatproto.LabelSubscribeLabels_Labels.UnmarshalCBOR, the
// same cbor-gen machinery bsky.watch/labeler/server/subscribe.go uses
// to encode it.
package frame

import (
	"bytes"

	"bsky.watch/labelclient/label"
)

// Message is one fully decoded event-stream message.
type Message struct {
	Header *Header

	// At most one of these is set, depending on Header; none is set
	// when UnknownType is true.
	Error *ErrorBody
	Info  *InfoBody
	Labels *LabelsBody

	// UnknownType is set when Header.MessageType isn't recognized;
	// per §4.7 this is non-fatal and should be logged, not acted on.
	UnknownType bool

	// TrailingBytes is the number of bytes left unread in the payload
	// after a successful header+body decode. Any non-zero value must
	// be reported (non-fatal) per §4.1.
	TrailingBytes int
}

// Decode decodes one binary message payload in full: the header, then
// its body. interner is used to share recurring DID and timestamp
// strings across assertions (see label.Interner).
func Decode(payload []byte, interner *label.Interner) (*Message, error) {
	r := bytes.NewReader(payload)

	header, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}

	msg := &Message{Header: header}

	switch {
	case header.IsError:
		eb, err := decodeErrorBody(r)
		if err != nil {
			return msg, err
		}
		msg.Error = eb
	case header.MessageType == "#labels":
		lb, err := decodeLabelsBody(r, interner)
		if err != nil {
			return msg, err
		}
		msg.Labels = lb
	case header.MessageType == "#info":
		ib, err := decodeInfoBody(r)
		if err != nil {
			return msg, err
		}
		msg.Info = ib
	default:
		msg.UnknownType = true
		return msg, nil
	}

	msg.TrailingBytes = r.Len()
	return msg, nil
}
