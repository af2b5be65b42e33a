// ABOUTME: caplaymu plays a headerless 8kHz mono mu-law file on the default output
// ABOUTME: Exits with a sysexits code describing how playback ended
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiounit-go/caplay/internal/sysexits"
	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/decode"
	"github.com/audiounit-go/caplay/pkg/audio/output"
	"github.com/audiounit-go/caplay/pkg/playback"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr, output.DefaultRegistry)
	stop()
	os.Exit(code)
}

// run plays args[0] through the default output found in reg and returns the exit code
func run(ctx context.Context, args []string, stderr io.Writer, reg *output.Registry) int {
	logger := log.New(stderr, "caplaymu: ", 0)

	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: caplaymu <ulaw file>")
		return sysexits.Usage
	}

	f, err := os.Open(args[0])
	if err != nil {
		logger.Printf("cannot open %s: %v", args[0], err)
		return sysexits.OSFile
	}

	src := decode.NewRaw(f, audio.MuLaw8k())
	defer src.Close()

	err = playback.Play(ctx, playback.Config{Registry: reg, Format: audio.MuLaw8k()}, src)
	if err != nil {
		logger.Printf("%v", err)
	}
	return sysexits.ForPlayback(err)
}
