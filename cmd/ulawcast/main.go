// ABOUTME: Entry point for ulawcast, the stream server
// ABOUTME: Serves an audio file over WebSocket in mu-law or Opus and advertises it via mDNS
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
	"path/filepath"
	"strings"
	"syscall"

	"github.com/audiounit-go/caplay/internal/discovery"
	"github.com/audiounit-go/caplay/internal/sysexits"
	"github.com/audiounit-go/caplay/internal/ui"
	"github.com/audiounit-go/caplay/pkg/audio/decode"
	"github.com/audiounit-go/caplay/pkg/stream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("ulawcast", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: ulawcast [options] <file>")
		fmt.Fprintln(stderr, "       ulawcast [options] -tone 440")
		flags.PrintDefaults()
	}

	port := flags.Int("port", 8930, "WebSocket server port")
	name := flags.String("name", "", "Server friendly name (default: hostname-ulawcast)")
	title := flags.String("title", "", "Stream title (default: file name)")
	codecs := flags.String("codecs", "ulaw,opus", "Comma separated codecs to offer, in order of preference")
	logFile := flags.String("log-file", "", "Also write the log to this file")
	debug := flags.Bool("debug", false, "Enable debug logging")
	noMDNS := flags.Bool("no-mdns", false, "Disable mDNS advertisement")
	tone := flags.Float64("tone", 0, "Stream an endless sine tone of this frequency instead of a file")
	useTUI := flags.Bool("tui", false, "Show connected clients in a live status view")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return sysexits.OK
		}
		return sysexits.Usage
	}
	if flags.NArg() > 1 || (flags.NArg() == 1) == (*tone > 0) {
		flags.Usage()
		return sysexits.Usage
	}

	// The status view owns the terminal, so the log only goes to the file
	var logOut io.Writer = stderr
	if *useTUI {
		logOut = io.Discard
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(stderr, "ulawcast: error opening log file: %v\n", err)
			return sysexits.OSFile
		}
		defer f.Close()
		logOut = io.MultiWriter(logOut, f)
	}
	log.SetOutput(logOut)

	open, label := sourceOpener(flags.Arg(0), *tone)
	offered := strings.Split(*codecs, ",")

	// Fail early when the source cannot be streamed at all
	first, err := open()
	if err != nil {
		fmt.Fprintf(stderr, "ulawcast: cannot open %s: %v\n", label, err)
		return sysexits.OSFile
	}
	first.Close()

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-ulawcast", hostname)
	}
	streamTitle := *title
	if streamTitle == "" {
		streamTitle = filepath.Base(label)
	}

	log.Printf("Starting ulawcast: %s on port %d, streaming %s", serverName, *port, label)

	config := stream.ServerConfig{
		Port:   *port,
		Name:   serverName,
		Title:  streamTitle,
		Codecs: offered,
		Open:   open,
		Debug:  *debug,
	}

	var quit <-chan struct{}
	if *useTUI {
		tui := ui.NewServerTUI(serverName, *port, streamTitle)
		config.OnClient = tui.ClientEvent
		quit = tui.QuitChan()

		go func() {
			if err := tui.Run(); err != nil {
				log.Printf("Status view error: %v", err)
			}
		}()
		defer tui.Stop()
	} else {
		log.Printf("Press Ctrl-C to stop")
	}

	srv := stream.NewServer(config)

	if !*noMDNS {
		mdns := discovery.NewManager(discovery.Config{
			ServiceName: serverName,
			Port:        *port,
			Path:        stream.Path,
			Codecs:      offered,
		})
		if err := mdns.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
		defer mdns.Stop()
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			log.Printf("Shutting down gracefully...")
		case <-quit:
			log.Printf("Quit requested, shutting down...")
		case <-finished:
			return
		}
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Printf("Server error: %v", err)
		return sysexits.Unavailable
	}
	return sysexits.OK
}

// sourceOpener returns a function opening a fresh source per client
func sourceOpener(path string, frequency float64) (func() (decode.Stream, error), string) {
	if frequency > 0 {
		return func() (decode.Stream, error) {
			return decode.NewTone(frequency, 48000, 2, 0), nil
		}, fmt.Sprintf("%gHz tone", frequency)
	}
	return func() (decode.Stream, error) {
		return decode.OpenFile(path)
	}, path
}
