// ABOUTME: auplay application: plays files and network streams on one output unit
// ABOUTME: Drives the render callback bridge directly, restarting the unit per source
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/audiounit-go/caplay/internal/discovery"
	"github.com/audiounit-go/caplay/internal/version"
	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/decode"
	"github.com/audiounit-go/caplay/pkg/audio/output"
	"github.com/audiounit-go/caplay/pkg/audiounit"
	"github.com/audiounit-go/caplay/pkg/playback"
	"github.com/audiounit-go/caplay/pkg/stream"
)

var (
	// ErrCannotOpen wraps failures to open or parse an input file
	ErrCannotOpen = errors.New("cannot open")
	// ErrUnavailable wraps failures to find or connect to a stream server
	ErrUnavailable = errors.New("stream unavailable")
)

// Config holds player configuration
type Config struct {
	Registry *output.Registry
	// Manufacturer of the default output unit as a four character code; empty matches any
	Manufacturer string
	Verbose      bool
	// Out receives progress lines (defaults to io.Discard)
	Out io.Writer

	// Network stream settings
	URL             string
	Codec           string
	Discover        bool
	DiscoverTimeout time.Duration
	BufferMs        int
}

// Player plays sources one after another on a single output unit
type Player struct {
	config Config
	unit   *audiounit.AudioUnit
	played int
}

// New creates a new player
func New(config Config) *Player {
	if config.Registry == nil {
		config.Registry = output.DefaultRegistry
	}
	if config.Out == nil {
		config.Out = io.Discard
	}
	if config.DiscoverTimeout <= 0 {
		config.DiscoverTimeout = 10 * time.Second
	}
	return &Player{config: config}
}

// Open finds, instantiates and initializes the default output unit
func (p *Player) Open() error {
	manufacturer, err := audio.ParseFourCC(p.config.Manufacturer)
	if err != nil {
		return err
	}

	desc := audio.ComponentDescription{
		Type:         audio.TypeOutput,
		SubType:      audio.SubTypeDefaultOutput,
		Manufacturer: manufacturer,
	}
	fmt.Fprintln(p.config.Out, desc)

	unit, err := audiounit.Open(p.config.Registry, desc)
	if err != nil {
		return err
	}
	p.unit = unit

	if p.config.Verbose {
		log.Printf("Opened %s", unit.Component().Name)
	}
	return nil
}

// Played returns how many sources finished playing
func (p *Player) Played() int {
	return p.played
}

// PlayFile plays one audio file in its own format
func (p *Player) PlayFile(ctx context.Context, path string) error {
	src, err := decode.OpenFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCannotOpen, err)
	}
	defer src.Close()

	fmt.Fprintf(p.config.Out, "playing %s\n", path)
	if p.config.Verbose {
		f := src.Format()
		fmt.Fprintf(p.config.Out, "%s:\n    sampling rate: %g\n    channels: %d\n    sample width: %d\n",
			path, f.SampleRate, f.ChannelsPerFrame, f.BitsPerChannel/8)
	}

	return p.play(ctx, path, src, src.Format())
}

// PlayStream connects to a stream server and plays until it closes the stream
func (p *Player) PlayStream(ctx context.Context) error {
	url := p.config.URL
	if p.config.Discover {
		findCtx, cancel := context.WithTimeout(ctx, p.config.DiscoverTimeout)
		server, err := discovery.FindServer(findCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		url = server.URL()
		log.Printf("Discovered server %s at %s", server.Name, url)
	}

	cfg := stream.ClientConfig{URL: url, Name: version.String(), BufferMs: p.config.BufferMs}
	if p.config.Codec != "" {
		cfg.Codecs = []string{p.config.Codec}
	}

	src, err := stream.Dial(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer src.Close()

	fmt.Fprintf(p.config.Out, "playing %s (%s)\n", url, src.Info().Codec)
	return p.play(ctx, url, src, src.Format())
}

// play configures the unit for format and runs it until r is exhausted
func (p *Player) play(ctx context.Context, name string, r io.Reader, format audio.StreamFormat) error {
	if p.unit == nil {
		return fmt.Errorf("player not open")
	}
	if err := p.unit.SetStreamFormat(format); err != nil {
		return err
	}

	done := make(chan error, 1)
	p.unit.SetStopHandler(func(reason error) {
		select {
		case done <- reason:
		default:
		}
	})

	if p.config.Verbose {
		fmt.Fprintln(p.config.Out, "Setting render callback")
	}
	cb := readerCallback(r, format)
	if live, ok := r.(availableReader); ok {
		cb = liveCallback(live, format)
	}
	if err := p.unit.SetRenderCallback(cb, name); err != nil {
		return err
	}

	if p.config.Verbose {
		fmt.Fprintln(p.config.Out, "Starting")
	}
	if err := p.unit.Start(); err != nil {
		return err
	}

	var reason error
	select {
	case reason = <-done:
	case <-ctx.Done():
		_ = p.unit.Stop()
		reason = ctx.Err()
	}

	if err := p.unit.SetRenderCallback(nil, nil); err != nil {
		log.Printf("Failed to clear render callback: %v", err)
	}

	if reason != nil && !errors.Is(reason, audiounit.ErrSourceExhausted) {
		return reason
	}
	p.played++
	return nil
}

// readerCallback fills the single interleaved buffer from r, padding the
// final short read with silence
func readerCallback(r io.Reader, format audio.StreamFormat) audiounit.RenderCallback {
	var buf []byte
	silence := format.SilenceByte()

	return func(args audiounit.RenderArgs) audiounit.RenderResult {
		if args.NumberBuffers != 1 {
			return audiounit.Fail(fmt.Errorf("%w: %d buffers requested, files are interleaved", audiounit.ErrCallbackProtocol, args.NumberBuffers))
		}
		if cap(buf) < args.BufferSize {
			buf = make([]byte, args.BufferSize)
		}
		b := buf[:args.BufferSize]

		n, err := playback.Fill(r, b)
		switch {
		case n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF):
			return audiounit.NoData()
		case err != nil && err != io.ErrUnexpectedEOF && err != io.EOF:
			return audiounit.Fail(fmt.Errorf("%w: %w", playback.ErrReadFailed, err))
		}

		for i := n; i < len(b); i++ {
			b[i] = silence
		}
		return audiounit.Continue(b)
	}
}

// availableReader is a live source that can report an underrun instead of
// blocking the render goroutine
type availableReader interface {
	ReadAvailable(p []byte) (int, error)
}

// liveCallback fills the buffer with whatever a live source has buffered.
// An underrun plays silence and keeps the unit running; the source ends
// playback only once it is closed and drained.
func liveCallback(r availableReader, format audio.StreamFormat) audiounit.RenderCallback {
	var buf []byte
	silence := format.SilenceByte()

	return func(args audiounit.RenderArgs) audiounit.RenderResult {
		if args.NumberBuffers != 1 {
			return audiounit.Fail(fmt.Errorf("%w: %d buffers requested, streams are interleaved", audiounit.ErrCallbackProtocol, args.NumberBuffers))
		}
		if cap(buf) < args.BufferSize {
			buf = make([]byte, args.BufferSize)
		}
		b := buf[:args.BufferSize]

		n, err := r.ReadAvailable(b)
		switch {
		case n == 0 && err == io.EOF:
			return audiounit.NoData()
		case n == 0 && err != nil:
			return audiounit.Fail(fmt.Errorf("%w: %w", playback.ErrReadFailed, err))
		}

		for i := n; i < len(b); i++ {
			b[i] = silence
		}
		if n == 0 {
			return audiounit.ContinueWithFlags(args.Flags|output.ActionOutputIsSilence, b)
		}
		return audiounit.Continue(b)
	}
}

// Close disposes of the output unit
func (p *Player) Close() error {
	if p.unit == nil {
		return nil
	}
	err := p.unit.Dispose()
	p.unit = nil
	return err
}
