// ABOUTME: Tests for exit code mapping
// ABOUTME: Checks each playback error category against its sysexits code
package sysexits

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audiounit"
	"github.com/audiounit-go/caplay/pkg/playback"
)

func TestForPlayback(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"finished", nil, OK},
		{"interrupted", fmt.Errorf("wait: %w", context.Canceled), Interrupted},
		{"read error", fmt.Errorf("%w: disk gone", playback.ErrReadFailed), IOErr},
		{"format rejected", &audiounit.Error{Op: "SetStreamFormat", Status: audio.StatusFormatNotSupported, Kind: audiounit.ErrFormatRejected}, DataErr},
		{"protocol violation", audiounit.ErrCallbackProtocol, Software},
		{"no device", audiounit.ErrDeviceUnavailable, OSErr},
		{"start failed", &audiounit.Error{Op: "Start", Status: audio.StatusNoConnection, Kind: audiounit.ErrDeviceError}, OSErr},
		{"unknown", errors.New("boom"), OSErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForPlayback(tt.err); got != tt.want {
				t.Errorf("ForPlayback(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
