package frame

import (
	"bytes"
	"fmt"
	"math"

	comatproto "github.com/bluesky-social/indigo/api/atproto"

	"bsky.watch/labelclient/label"
)

// ErrorBody is the body of an op=-1 error frame (§4.1).
type ErrorBody struct {
	Error   string
	Message string // empty if absent
}

func decodeErrorBody(r *bytes.Reader) (*ErrorBody, error) {
	count, err := decodeMapHeader(r)
	if err != nil {
		return nil, decodeErrorf("error body", "%w", err)
	}
	var eb ErrorBody
	var seen bool
	for i := uint64(0); i < count; i++ {
		key, err := decodeTextString(r)
		if err != nil {
			return nil, decodeErrorf("error body", "reading field name: %w", err)
		}
		switch key {
		case "error":
			s, err := decodeTextString(r)
			if err != nil {
				return nil, decodeErrorf("error body", "reading \"error\": %w", err)
			}
			eb.Error = s
			seen = true
		case "message":
			isNull, err := peekNull(r)
			if err != nil {
				return nil, decodeErrorf("error body", "reading \"message\": %w", err)
			}
			if isNull {
				continue
			}
			s, err := decodeTextString(r)
			if err != nil {
				return nil, decodeErrorf("error body", "reading \"message\": %w", err)
			}
			eb.Message = s
		default:
			return nil, decodeErrorf("error body", "unexpected field %q", key)
		}
	}
	if !seen {
		return nil, decodeErrorf("error body", "missing required field \"error\"")
	}
	return &eb, nil
}

// InfoBody is the body of a "#info" message: a non-fatal informational
// notice from the labeler.
type InfoBody struct {
	Name    string
	Message string
}

func decodeInfoBody(r *bytes.Reader) (*InfoBody, error) {
	count, err := decodeMapHeader(r)
	if err != nil {
		return nil, decodeErrorf("info body", "%w", err)
	}
	var ib InfoBody
	for i := uint64(0); i < count; i++ {
		key, err := decodeTextString(r)
		if err != nil {
			return nil, decodeErrorf("info body", "reading field name: %w", err)
		}
		switch key {
		case "name":
			s, err := decodeTextString(r)
			if err != nil {
				return nil, decodeErrorf("info body", "reading \"name\": %w", err)
			}
			ib.Name = s
		case "message":
			isNull, err := peekNull(r)
			if err != nil {
				return nil, decodeErrorf("info body", "reading \"message\": %w", err)
			}
			if isNull {
				continue
			}
			s, err := decodeTextString(r)
			if err != nil {
				return nil, decodeErrorf("info body", "reading \"message\": %w", err)
			}
			ib.Message = s
		default:
			return nil, decodeErrorf("info body", "unexpected field %q", key)
		}
	}
	return &ib, nil
}

// LabelsBody is the decoded body of a "#labels" message (§4.1): a
// sequence number and the one-or-more label assertions it carries.
type LabelsBody struct {
	Seq        int64
	Assertions []label.Assertion
}

// decodeLabelsBody decodes the body using indigo's generated cbor-gen
// type for com.atproto.label.subscribeLabels#labels, then validates
// and converts each record into a label.Assertion, rejecting any
// record whose version isn't 1 and any seq outside (0, MaxInt64).
func decodeLabelsBody(r *bytes.Reader, interner *label.Interner) (*LabelsBody, error) {
	var wire comatproto.LabelSubscribeLabels_Labels
	if err := wire.UnmarshalCBOR(r); err != nil {
		return nil, decodeErrorf("labels body", "unmarshaling cbor: %w", err)
	}

	if wire.Seq <= 0 || wire.Seq == math.MaxInt64 {
		return nil, decodeErrorf("labels body", "sequence number %d out of range (0, MaxInt64)", wire.Seq)
	}

	body := &LabelsBody{Seq: wire.Seq}
	for _, l := range wire.Labels {
		if l == nil {
			continue
		}
		if l.Ver == nil || *l.Ver != label.SupportedVersion {
			var got string
			if l.Ver == nil {
				got = "<missing>"
			} else {
				got = fmt.Sprintf("%d", *l.Ver)
			}
			return nil, decodeErrorf("labels body", "unsupported label record version %s (only version %d is accepted)", got, label.SupportedVersion)
		}

		a := label.Assertion{
			Key: label.Key{
				Src:       interner.Intern(l.Src),
				TargetURI: interner.Intern(l.Uri),
				Val:       l.Val,
			},
			Seq:             wire.Seq,
			CreateTimestamp: interner.Intern(l.Cts),
		}
		if l.Exp != nil {
			a.ExpiryTimestamp = *l.Exp
		}
		if l.Neg != nil {
			a.Neg = *l.Neg
		}
		if l.Cid != nil {
			a.TargetCID = *l.Cid
		}
		if len(l.Sig) > 0 {
			a.Sig = append([]byte(nil), l.Sig...)
		}
		body.Assertions = append(body.Assertions, a)
	}
	return body, nil
}
