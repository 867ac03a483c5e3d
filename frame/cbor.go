package frame

import (
	"bytes"
	"fmt"
)

// The event-stream header and error-body shapes (§4.1) are protocol
// metadata, not lexicon-defined records, so indigo has no generated
// cbor-gen type for them (unlike the "#labels" body, which body.go
// decodes with comatproto.LabelSubscribeLabels_Labels.UnmarshalCBOR).
// This file holds the helpers used to hand-decode those small, fixed
// shapes (and the "#info" body, which body.go decodes the same way): a
// definite-length map of short text keys whose values are unsigned or
// negative integers, text strings, or null. It intentionally does not
// attempt to be a general CBOR decoder.

const (
	majUnsigned = 0
	majNegative = 1
	majText     = 3
	majMap      = 5
)

const nullByte = 0xf6

func readArgHeader(r *bytes.Reader) (major byte, value uint64, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, fmt.Errorf("reading cbor item header: %w", err)
	}
	major = b >> 5
	info := b & 0x1f
	switch {
	case info < 24:
		return major, uint64(info), nil
	case info == 24:
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		return major, uint64(b), nil
	case info == 25:
		var buf [2]byte
		if _, err := readFull(r, buf[:]); err != nil {
			return 0, 0, err
		}
		return major, uint64(buf[0])<<8 | uint64(buf[1]), nil
	case info == 26:
		var buf [4]byte
		if _, err := readFull(r, buf[:]); err != nil {
			return 0, 0, err
		}
		var v uint64
		for _, b := range buf {
			v = v<<8 | uint64(b)
		}
		return major, v, nil
	case info == 27:
		var buf [8]byte
		if _, err := readFull(r, buf[:]); err != nil {
			return 0, 0, err
		}
		var v uint64
		for _, b := range buf {
			v = v<<8 | uint64(b)
		}
		return major, v, nil
	default:
		return 0, 0, fmt.Errorf("unsupported cbor additional info %d (indefinite-length items are not expected here)", info)
	}
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		b, err := r.ReadByte()
		if err != nil {
			return n, err
		}
		buf[n] = b
		n++
	}
	return n, nil
}

func decodeMapHeader(r *bytes.Reader) (count uint64, err error) {
	major, value, err := readArgHeader(r)
	if err != nil {
		return 0, err
	}
	if major != majMap {
		return 0, fmt.Errorf("expected a cbor map, got major type %d", major)
	}
	return value, nil
}

func decodeTextString(r *bytes.Reader) (string, error) {
	major, length, err := readArgHeader(r)
	if err != nil {
		return "", err
	}
	if major != majText {
		return "", fmt.Errorf("expected a cbor text string, got major type %d", major)
	}
	buf := make([]byte, length)
	if _, err := readFull(r, buf); err != nil {
		return "", fmt.Errorf("reading text string body: %w", err)
	}
	return string(buf), nil
}

func decodeInt64(r *bytes.Reader) (int64, error) {
	major, value, err := readArgHeader(r)
	if err != nil {
		return 0, err
	}
	switch major {
	case majUnsigned:
		if value > 1<<63-1 {
			return 0, fmt.Errorf("integer value %d overflows int64", value)
		}
		return int64(value), nil
	case majNegative:
		if value > 1<<63-1 {
			return 0, fmt.Errorf("negative integer value overflows int64")
		}
		return -1 - int64(value), nil
	default:
		return 0, fmt.Errorf("expected a cbor integer, got major type %d", major)
	}
}

// peekNull reports whether the next item is the CBOR null value, and
// consumes it if so. It leaves the reader positioned at the start of
// the next item otherwise.
func peekNull(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	if b == nullByte {
		return true, nil
	}
	if err := r.UnreadByte(); err != nil {
		return false, err
	}
	return false, nil
}
