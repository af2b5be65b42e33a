// ABOUTME: Sine tone generator stream
// ABOUTME: Produces 16-bit PCM for tests, examples and ulawcast -tone
package decode

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// ToneStream generates a sine wave as little-endian 16-bit PCM
type ToneStream struct {
	format      audio.StreamFormat
	frequency   float64
	amplitude   float64
	sampleIndex uint64
	total       uint64 // frames; zero means endless
	pending     []byte // partial frame left over from the last Read
}

// NewTone creates a tone of frequency Hz. A zero duration never ends.
func NewTone(frequency float64, sampleRate, channels int, duration time.Duration) *ToneStream {
	return &ToneStream{
		format:    audio.LinearPCM(sampleRate, channels, 16, false),
		frequency: frequency,
		amplitude: 0.5, // 50% volume
		total:     uint64(duration.Seconds() * float64(sampleRate)),
	}
}

// Format describes the bytes returned by Read
func (s *ToneStream) Format() audio.StreamFormat {
	return s.format
}

// Read fills p with whole frames where it can; a trailing partial frame is kept for the next call
func (s *ToneStream) Read(p []byte) (int, error) {
	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	frameSize := int(s.format.BytesPerFrame)
	var frame [16]byte
	for n < len(p) {
		if s.total > 0 && s.sampleIndex >= s.total {
			break
		}

		t := float64(s.sampleIndex) / s.format.SampleRate
		v := int16(math.Sin(2*math.Pi*s.frequency*t) * 32767.0 * s.amplitude)
		s.sampleIndex++

		for c := 0; c < int(s.format.ChannelsPerFrame); c++ {
			binary.LittleEndian.PutUint16(frame[c*2:], uint16(v))
		}

		copied := copy(p[n:], frame[:frameSize])
		n += copied
		if copied < frameSize {
			s.pending = append(s.pending[:0], frame[copied:frameSize]...)
		}
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Close releases resources
func (s *ToneStream) Close() error {
	return nil
}

var _ Stream = (*ToneStream)(nil)
