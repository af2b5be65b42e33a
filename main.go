// ABOUTME: Entry point for auplay, the general purpose player
// ABOUTME: Parses CLI flags and plays files or a network stream on the default output
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiounit-go/caplay/internal/app"
	"github.com/audiounit-go/caplay/internal/sysexits"
	"github.com/audiounit-go/caplay/internal/version"
	"github.com/audiounit-go/caplay/pkg/audio/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, output.DefaultRegistry)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, reg *output.Registry) int {
	flags := flag.NewFlagSet("auplay", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: auplay [options] <file>...")
		fmt.Fprintln(stderr, "       auplay [options] -url ws://host:port/caplay | -discover")
		flags.PrintDefaults()
	}

	manufacturer := flags.String("m", "appl", "Open the output unit from `manufacturer` (four characters, empty for any)")
	verbose := flags.Bool("v", false, "Print more logging information")
	url := flags.String("url", "", "Play a network stream from this WebSocket URL")
	codec := flags.String("codec", "", "Request this stream codec (ulaw or opus)")
	discover := flags.Bool("discover", false, "Find a stream server with mDNS and play it")
	bufferMs := flags.Int("buffer-ms", 500, "Network stream buffer in milliseconds")
	showVersion := flags.Bool("version", false, "Print version and exit")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return sysexits.OK
		}
		return sysexits.Usage
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return sysexits.OK
	}

	streaming := *url != "" || *discover
	if flags.NArg() == 0 && !streaming {
		fmt.Fprintln(stderr, "auplay: need at least one file argument")
		flags.Usage()
		return sysexits.Usage
	}
	if flags.NArg() > 0 && streaming {
		fmt.Fprintln(stderr, "auplay: files cannot be combined with -url or -discover")
		return sysexits.Usage
	}

	log.SetOutput(stderr)
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	player := app.New(app.Config{
		Registry:     reg,
		Manufacturer: *manufacturer,
		Verbose:      *verbose,
		Out:          stdout,
		URL:          *url,
		Codec:        *codec,
		Discover:     *discover,
		BufferMs:     *bufferMs,
	})
	defer player.Close()

	if err := player.Open(); err != nil {
		fmt.Fprintf(stderr, "auplay: %v\n", err)
		return sysexits.OSErr
	}

	if streaming {
		err := player.PlayStream(ctx)
		if err == nil {
			return sysexits.OK
		}
		fmt.Fprintf(stderr, "auplay: %v\n", err)
		if errors.Is(err, app.ErrUnavailable) && !errors.Is(err, context.Canceled) {
			return sysexits.Unavailable
		}
		return sysexits.ForPlayback(err)
	}

	code := sysexits.OK
	for _, path := range flags.Args() {
		err := player.PlayFile(ctx, path)
		if err == nil {
			continue
		}
		fmt.Fprintf(stderr, "auplay: %s: %v\n", path, err)

		if errors.Is(err, app.ErrCannotOpen) {
			// Skip unreadable files and keep going
			code = sysexits.OSFile
			continue
		}
		return sysexits.ForPlayback(err)
	}
	return code
}
