package frame

import "bytes"

// Header is the decoded event-stream frame header (§4.1). Exactly two
// shapes are valid: {op: 1, t: "<message type>"} or {op: -1} (an error
// frame, which never carries t). Any other combination is a malformed
// header, fatal to the connection.
type Header struct {
	Op          int64
	MessageType string // set only when IsError is false
	IsError     bool
}

// DecodeHeader reads one header map from r, leaving r positioned right
// after it so the caller can decode the body from the same reader.
func DecodeHeader(r *bytes.Reader) (*Header, error) {
	count, err := decodeMapHeader(r)
	if err != nil {
		return nil, decodeErrorf("header", "%w", err)
	}

	var op int64
	var opSeen bool
	var t *string

	for i := uint64(0); i < count; i++ {
		key, err := decodeTextString(r)
		if err != nil {
			return nil, decodeErrorf("header", "reading field name: %w", err)
		}
		switch key {
		case "op":
			v, err := decodeInt64(r)
			if err != nil {
				return nil, decodeErrorf("header", "reading \"op\": %w", err)
			}
			op = v
			opSeen = true
		case "t":
			isNull, err := peekNull(r)
			if err != nil {
				return nil, decodeErrorf("header", "reading \"t\": %w", err)
			}
			if isNull {
				t = nil
				continue
			}
			s, err := decodeTextString(r)
			if err != nil {
				return nil, decodeErrorf("header", "reading \"t\": %w", err)
			}
			t = &s
		default:
			return nil, decodeErrorf("header", "unexpected header field %q", key)
		}
	}

	if !opSeen {
		return nil, decodeErrorf("header", "missing required field \"op\"")
	}

	switch {
	case op == 1 && t != nil:
		return &Header{Op: op, MessageType: *t}, nil
	case op == -1 && t == nil:
		return &Header{Op: op, IsError: true}, nil
	default:
		return nil, decodeErrorf("header", "malformed header shape: op=%d t-present=%v", op, t != nil)
	}
}
