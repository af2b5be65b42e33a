// ABOUTME: BSD sysexits(3) process exit codes
// ABOUTME: Maps playback failures onto the conventional exit statuses
package sysexits

import (
	"context"
	"errors"

	"github.com/audiounit-go/caplay/pkg/audiounit"
	"github.com/audiounit-go/caplay/pkg/playback"
)

// Exit codes
const (
	OK          = 0
	Usage       = 64  // EX_USAGE
	DataErr     = 65  // EX_DATAERR: the device rejected the file's format
	Unavailable = 69  // EX_UNAVAILABLE: no stream server answered
	Software    = 70  // EX_SOFTWARE: a render callback broke the buffer contract
	OSErr       = 71  // EX_OSERR: the audio device failed
	OSFile      = 72  // EX_OSFILE: the input file cannot be opened
	IOErr       = 74  // EX_IOERR: reading the source failed mid-playback
	Interrupted = 130 // 128 + SIGINT
)

// ForPlayback maps an error returned by a playback session
func ForPlayback(err error) int {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, context.Canceled):
		return Interrupted
	case errors.Is(err, playback.ErrReadFailed):
		return IOErr
	case errors.Is(err, audiounit.ErrFormatRejected):
		return DataErr
	case errors.Is(err, audiounit.ErrCallbackProtocol):
		return Software
	default:
		return OSErr
	}
}
