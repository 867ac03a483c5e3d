// Package cursor implements the monotonic resume cursor (§4.2).
//
// Grounded on original_source/src/main.rs's cursor-advance-before-
// side-effects discipline and styled after the bounds-checking idiom
// in bsky.watch/labeler/server/key.go, adapted to a plain int64 since
// the durable store here is relational (an ordered INTEGER column)
// rather than an ordered byte-key store like bbolt.
package cursor

import "fmt"

// Cursor tracks the highest sequence number successfully processed in
// this session. The zero value means "replay from the start."
type Cursor struct {
	value int64
}

// New returns a Cursor initialized to the given starting value
// (0 to replay from the start, or a previously-saved cursor to resume).
func New(start int64) *Cursor {
	return &Cursor{value: start}
}

// Value returns the current cursor value.
func (c *Cursor) Value() int64 {
	return c.value
}

// Advance requires seq > current value and, if so, sets the cursor to
// seq. A violation is fatal to the connection (§4.2, §8 property 1).
func (c *Cursor) Advance(seq int64) error {
	if seq <= c.value {
		return fmt.Errorf("sequence number %d does not advance past cursor %d", seq, c.value)
	}
	c.value = seq
	return nil
}
