// Package stream implements the stream driver (§4.5): it owns the
// websocket connection exclusively, decodes nothing itself, and
// forwards raw frames (or terminal conditions) to a bounded channel so
// a slow consumer applies backpressure all the way to the socket.
//
// Grounded on bsky.watch/labeler/server/subscribe.go's dial/read loop
// (gorilla/websocket client usage) and the cancel-safe select
// discipline in SagerNet/smux's session.go, adapted here to race a
// blocking ReadMessage call against an idle timer the way
// original_source/src/main.rs races tokio::select against a sleep.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// EventType classifies one item delivered on a Driver's Events channel.
type EventType int

const (
	// EventBinary carries one decoded-nothing binary websocket frame:
	// the raw bytes handed to frame.Decode by the caller.
	EventBinary EventType = iota
	// EventText carries a text frame. The subscribeLabels protocol
	// never sends these; receiving one is logged and otherwise ignored
	// by the session orchestrator.
	EventText
	// EventClosed reports the peer closed the connection with a
	// websocket close frame (§4.7's Closed condition).
	EventClosed
	// EventError reports a transport-level read failure (§4.7's
	// TransportError).
	EventError
)

// Event is one item produced by a Driver.
type Event struct {
	Type EventType

	Binary []byte
	Text   string

	CloseCode int
	CloseText string

	Err error
}

// Driver owns one websocket connection and produces a stream of Events
// on a bounded channel until the connection ends, the idle timeout
// elapses, or ctx is canceled.
type Driver struct {
	conn         *websocket.Conn
	events       chan Event
	streamTimeout time.Duration
}

// Dial opens the websocket connection described by u, applying
// connectTimeout as the handshake deadline (§4.5, §6's connect_timeout
// config key). bufferSize sets the channel capacity backing Events
// (§5's bounded-channel backpressure primitive).
func Dial(ctx context.Context, u *url.URL, connectTimeout time.Duration, streamTimeout time.Duration, bufferSize int) (*Driver, error) {
	dialer := &websocket.Dialer{
		Proxy: websocket.DefaultDialer.Proxy,
	}
	if connectTimeout > 0 {
		dialer.HandshakeTimeout = connectTimeout
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Context: "dial", Err: err}
	}

	if bufferSize <= 0 {
		bufferSize = 10000
	}

	return &Driver{
		conn:          conn,
		events:        make(chan Event, bufferSize),
		streamTimeout: streamTimeout,
	}, nil
}

// Events returns the channel Run publishes to. It is closed when Run
// returns, whether due to cancellation, idle timeout, a peer close
// frame, or a transport error — callers distinguish the cause by
// whether a terminal Event arrived before the channel closed: a close
// with no preceding EventClosed/EventError means the idle timeout
// fired (§4.7's Idle condition) or ctx was canceled; those are the
// only two conditions that produce no Event at all.
func (d *Driver) Events() <-chan Event {
	return d.events
}

// Close closes the underlying websocket connection. Safe to call after
// Run has returned.
func (d *Driver) Close() error {
	return d.conn.Close()
}

type rawMessage struct {
	messageType int
	data        []byte
	err         error
}

// Run reads frames from the connection until ctx is canceled, the idle
// timeout elapses, the peer closes the connection, or a transport
// error occurs. It blocks until one of those happens, then closes
// Events(). Run must be called at most once per Driver.
func (d *Driver) Run(ctx context.Context) {
	defer close(d.events)

	msgCh := make(chan rawMessage, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			mt, data, err := d.conn.ReadMessage()
			select {
			case msgCh <- rawMessage{mt, data, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var timeoutCh <-chan time.Time
		var timer *time.Timer
		if d.streamTimeout > 0 {
			timer = time.NewTimer(d.streamTimeout)
			timeoutCh = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return

		case <-timeoutCh:
			// Idle: no forward progress within streamTimeout. Per
			// §4.7, this is a terminal success condition, not an
			// error — the channel closes with no Event describing it.
			return

		case m := <-msgCh:
			stopTimer(timer)
			if m.err != nil {
				d.emit(ctx, classifyReadError(m.err))
				return
			}

			switch m.messageType {
			case websocket.BinaryMessage:
				if !d.emit(ctx, Event{Type: EventBinary, Binary: m.data}) {
					return
				}
			case websocket.TextMessage:
				if !d.emit(ctx, Event{Type: EventText, Text: string(m.data)}) {
					return
				}
			default:
				// Control frames (ping/pong) are handled internally by
				// gorilla/websocket and never reach ReadMessage's
				// result; nothing else to do here.
			}
		}
	}
}

// emit delivers ev on the events channel, honoring cancellation so a
// canceled orchestrator never blocks this goroutine forever. It
// returns false if ctx was canceled before the send completed.
func (d *Driver) emit(ctx context.Context, ev Event) bool {
	select {
	case d.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func classifyReadError(err error) Event {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return Event{Type: EventClosed, CloseCode: closeErr.Code, CloseText: closeErr.Text}
	}
	return Event{Type: EventError, Err: fmt.Errorf("reading frame: %w", err)}
}
