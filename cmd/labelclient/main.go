// Command labelclient is the CLI surface for the session orchestrator
// (§6): subcommands "lookup <handle-or-did>" and "direct <host>", with
// flags controlling timeouts, durable storage, and buffer size.
//
// Grounded on bsky.watch/labeler/cmd/list-labeler's main.go (flag
// layout, logging.Setup wiring) and cmd/dump's main.go (the minimal
// flag-driven single-purpose client this supersedes).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"bsky.watch/labelclient/logging"
	"bsky.watch/labelclient/resolver"
	"bsky.watch/labelclient/session"
	"bsky.watch/labelclient/store"
)

var (
	streamTimeout  = flag.Duration("stream-timeout", 5*time.Second, "Idle cutoff between frames; <=0 means never idle out")
	connectTimeout = flag.Duration("connect-timeout", 10*time.Second, "Socket-open deadline; <=0 means never time out")
	saveToDB       = flag.String("save-to-db", "", "Path to an embedded sqlite file to write the audit trail to; empty disables the durable writer")
	bufferSize     = flag.Int("buffer-size", 10000, "Stream driver channel capacity, in frames")
	plcDirectory   = flag.String("plc-directory", "plc.directory", "Host of the PLC directory used to resolve did:plc documents")

	logFile   = flag.String("log-file", "", "File to write the logs to. Will use stderr if not set")
	logFormat = flag.String("log-format", "text", "Log entry format, 'text' or 'json'.")
	logLevel  = flag.Int("log-level", 1, "Log level. 0 - debug, 1 - info, 3 - error")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] lookup <handle-or-did>\n       %s [flags] direct <host>\n", os.Args[0], os.Args[0])
	flag.PrintDefaults()
}

func runMain(ctx context.Context) error {
	log := zerolog.Ctx(ctx)

	args := flag.Args()
	if len(args) != 2 {
		usage()
		return fmt.Errorf("expected exactly one subcommand and one argument")
	}

	var host, seedDID string
	switch args[0] {
	case "lookup":
		id, err := resolver.Resolve(ctx, args[1], *plcDirectory)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", args[1], err)
		}
		log.Info().Str("did", id.DID).Str("handle", id.Handle).Str("host", id.LabelerHost).Msg("resolved labeler")
		host = id.LabelerHost
		seedDID = id.DID
	case "direct":
		host = args[1]
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}

	var st *store.Store
	if *saveToDB != "" {
		s, err := store.Open(*saveToDB)
		if err != nil {
			return fmt.Errorf("opening durable store: %w", err)
		}
		defer s.Close()
		st = s
	}

	sess, err := session.New(session.Options{
		Host:           host,
		StreamTimeout:  *streamTimeout,
		ConnectTimeout: *connectTimeout,
		BufferSize:     *bufferSize,
		Store:          st,
		SeedDID:        seedDID,
	})
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	summary, err := sess.Run(ctx)
	if err != nil {
		return fmt.Errorf("session ended fatally: %w", err)
	}

	for _, line := range summary.Render() {
		fmt.Println(line)
	}
	return nil
}

func main() {
	flag.Usage = usage
	flag.Parse()

	ctx := logging.Setup(context.Background(), *logFile, *logFormat, zerolog.Level(*logLevel))
	log := zerolog.Ctx(ctx)

	if err := runMain(ctx); err != nil {
		log.Fatal().Err(err).Msgf("%s", err)
	}
}
