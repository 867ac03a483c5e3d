// Package session implements the orchestrator (§4.6): it wires the
// resolved host, the stream driver, the reducer, and the optional
// durable writer together, drives the Resolving→Finalizing state
// machine, and applies the progress-based retry policy.
//
// Grounded on original_source/src/main.rs's session loop (state names,
// retry-on-progress counter, finalize path) and styled after
// bsky.watch/labeler/server/subscribe.go's frame read loop for how a
// single episode consumes the stream driver's channel.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"bsky.watch/labelclient/cursor"
	"bsky.watch/labelclient/frame"
	"bsky.watch/labelclient/label"
	"bsky.watch/labelclient/metrics"
	"bsky.watch/labelclient/reducer"
	"bsky.watch/labelclient/store"
	"bsky.watch/labelclient/stream"
)

// maxRetries bounds reconnection attempts that make no forward
// progress (§4.6's retry policy).
const maxRetries = 3

// Options configures one session run (§6's configuration table).
type Options struct {
	Host           string
	Scheme         string // defaults to "wss"; tests override to "ws" against a local server
	StartCursor    int64
	StreamTimeout  time.Duration
	ConnectTimeout time.Duration
	BufferSize     int
	Store          *store.Store // nil disables the durable writer
	Hook           RecordHook   // nil uses a no-op hook
	SeedDID        string       // non-empty in "lookup" mode (§3's LabelerIdentity set)
}

// Session drives one full run: Resolving is assumed complete (Options
// already carries the resolved Host) through Finalizing.
type Session struct {
	opts     Options
	reducer  *reducer.Reducer
	cursor   *cursor.Cursor
	hook     RecordHook
	interner *label.Interner
}

// New validates opts and returns a ready-to-run Session.
func New(opts Options) (*Session, error) {
	if opts.Host == "" {
		return nil, &ConfigError{Context: "host", Err: fmt.Errorf("missing resolver result")}
	}
	if opts.BufferSize <= 0 {
		return nil, &ConfigError{Context: "buffer_size", Err: fmt.Errorf("must be positive, got %d", opts.BufferSize)}
	}

	r := reducer.New()
	if opts.SeedDID != "" {
		if err := r.SeedKnownDID(opts.SeedDID); err != nil {
			return nil, &ConfigError{Context: "seed_did", Err: err}
		}
	}

	hook := opts.Hook
	if hook == nil {
		hook = noopHook{}
	}
	if opts.Scheme == "" {
		opts.Scheme = "wss"
	}

	return &Session{
		opts:     opts,
		reducer:  r,
		cursor:   cursor.New(opts.StartCursor),
		hook:     hook,
		interner: label.NewInterner(),
	}, nil
}

// episodeOutcome reports why one Streaming episode ended.
type episodeOutcome struct {
	state      State // Idle, Closed, or Error
	err        error
	progressed bool
}

// Run drives the state machine until Finalizing and returns the
// resulting Summary. A non-nil error means a process-fatal condition
// ended the session early (§4.7): a ConfigError, or any
// frame.DecodeError — schema/version mismatch and malformed header
// shape, but also malformed CBOR and an out-of-range seq.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	log := zerolog.Ctx(ctx)

	noProgressCount := 0
	reconnectCount := 0
	finalState := Finalizing

	for {
		log.Info().Str("state", Connecting.String()).Int64("cursor", s.cursor.Value()).Msg("connecting")

		outcome, fatal := s.runEpisode(ctx, log)
		if fatal != nil {
			return Summary{}, fatal
		}

		if outcome.progressed {
			noProgressCount = 0
		} else {
			noProgressCount++
		}

		switch outcome.state {
		case Idle:
			log.Info().Msg("idle timeout fired, finalizing")
			finalState = Idle
			goto finalize

		case Closed, Error:
			if outcome.err != nil {
				log.Error().Err(outcome.err).Str("state", outcome.state.String()).Msg("episode ended")
			}
			if noProgressCount >= maxRetries {
				log.Warn().Int("no_progress_count", noProgressCount).Msg("max retries without progress reached, finalizing")
				finalState = outcome.state
				goto finalize
			}
			reconnectCount++
			metrics.ReconnectCount.Inc()
			log.Info().Int64("cursor", s.cursor.Value()).Msg("retrying")
			continue
		}
	}

finalize:
	return buildSummary(s.cursor.Value(), s.reducer, reconnectCount, finalState), nil
}

// runEpisode runs one Connecting→Streaming→(Idle|Closed|Error) cycle.
// The second return value is non-nil only for a process-fatal error.
func (s *Session) runEpisode(ctx context.Context, log *zerolog.Logger) (episodeOutcome, error) {
	u, err := url.Parse(fmt.Sprintf("%s://%s/xrpc/com.atproto.label.subscribeLabels?cursor=%d", s.opts.Scheme, s.opts.Host, s.cursor.Value()))
	if err != nil {
		return episodeOutcome{}, &ConfigError{Context: "url", Err: err}
	}

	cursorBefore := s.cursor.Value()

	driver, err := stream.Dial(ctx, u, s.opts.ConnectTimeout, s.opts.StreamTimeout, s.opts.BufferSize)
	if err != nil {
		return episodeOutcome{state: Error, err: err, progressed: false}, nil
	}
	defer driver.Close()

	episodeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go driver.Run(episodeCtx)

	for ev := range driver.Events() {
		switch ev.Type {
		case stream.EventBinary:
			msg, err := frame.Decode(ev.Binary, s.interner)
			if err != nil {
				var de *frame.DecodeError
				if errors.As(err, &de) {
					return episodeOutcome{}, de
				}
				return episodeOutcome{}, err
			}

			outcome, fatal, progressed := s.handleMessage(ctx, log, msg)
			if fatal != nil {
				return episodeOutcome{}, fatal
			}
			if outcome != nil {
				outcome.progressed = progressed || s.cursor.Value() > cursorBefore
				return *outcome, nil
			}

		case stream.EventText:
			log.Info().Str("text", ev.Text).Msg("text frame received")

		case stream.EventClosed:
			return episodeOutcome{
				state:      Closed,
				progressed: s.cursor.Value() > cursorBefore,
			}, nil

		case stream.EventError:
			return episodeOutcome{
				state:      Error,
				err:        ev.Err,
				progressed: s.cursor.Value() > cursorBefore,
			}, nil
		}
	}

	// Channel closed with no terminal Event: idle timeout (§4.7).
	return episodeOutcome{
		state:      Idle,
		progressed: s.cursor.Value() > cursorBefore,
	}, nil
}

// handleMessage applies one decoded message. It returns a non-nil
// *episodeOutcome when the episode must end (a protocol-level error
// frame or a cursor-monotonicity violation), and a non-nil error only
// for process-fatal conditions.
func (s *Session) handleMessage(ctx context.Context, log *zerolog.Logger, msg *frame.Message) (*episodeOutcome, error, bool) {
	if msg.TrailingBytes > 0 {
		log.Warn().Int("trailing_bytes", msg.TrailingBytes).Msg("trailing bytes after message")
	}

	switch {
	case msg.UnknownType:
		log.Warn().Str("type", msg.Header.MessageType).Msg("unknown message type")
		return nil, nil, false

	case msg.Error != nil:
		return &episodeOutcome{
			state: Error,
			err:   &ProtocolError{Context: "peer error frame", Err: fmt.Errorf("%s: %s", msg.Error.Error, msg.Error.Message)},
		}, nil, false

	case msg.Info != nil:
		log.Info().Str("name", msg.Info.Name).Str("message", msg.Info.Message).Msg("info frame")
		return nil, nil, false

	case msg.Labels != nil:
		if err := s.cursor.Advance(msg.Labels.Seq); err != nil {
			return &episodeOutcome{
				state: Error,
				err:   &ProtocolError{Context: "seq monotonicity", Err: err},
			}, nil, false
		}
		metrics.Cursor.Set(float64(msg.Labels.Seq))

		seenAt := time.Now()
		for _, a := range msg.Labels.Assertions {
			s.reducer.Apply(a)
			metrics.LabelsProcessed.Inc()
			s.hook.Insert(a)

			if s.opts.Store != nil {
				start := time.Now()
				if err := s.opts.Store.Insert(ctx, a, seenAt); err != nil {
					// Log and move on. The cursor has already advanced
					// past this seq, so this assertion is not written again.
					log.Error().Err(&StorageError{Err: err}).Msg("durable write failed")
				}
				metrics.StoreWriteLatency.Observe(time.Since(start).Seconds())
			}
		}
		return nil, nil, true
	}

	return nil, nil, false
}
