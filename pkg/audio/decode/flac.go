// ABOUTME: FLAC file reader
// ABOUTME: Decodes FLAC frames to interleaved little-endian integer PCM
package decode

import (
	"fmt"
	"io"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/mewkiz/flac"
)

type flacStream struct {
	stream   *flac.Stream
	format   audio.StreamFormat
	shift    uint
	pending  []byte
	scratch  []byte
	finished bool
}

// NewFLAC creates a stream of interleaved frames at 16, 24 or 32 bits,
// whichever is the smallest container for the file's sample width.
func NewFLAC(r io.Reader) (Stream, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}

	bits := int(stream.Info.BitsPerSample)
	container := 16
	switch {
	case bits > 24:
		container = 32
	case bits > 16:
		container = 24
	}

	s := &flacStream{
		stream: stream,
		format: audio.LinearPCM(int(stream.Info.SampleRate), int(stream.Info.NChannels), container, false),
		shift:  uint(container - bits),
	}
	return s, nil
}

func (s *flacStream) Format() audio.StreamFormat { return s.format }

func (s *flacStream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		if s.finished {
			return 0, io.EOF
		}
		if err := s.decodeFrame(); err != nil {
			if err == io.EOF {
				s.finished = true
				continue
			}
			return 0, fmt.Errorf("flac decode error: %w", err)
		}
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// decodeFrame interleaves the next FLAC frame into s.pending
func (s *flacStream) decodeFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		return err
	}

	channels := len(frame.Subframes)
	if channels == 0 {
		return nil
	}
	samples := len(frame.Subframes[0].Samples)
	width := int(s.format.BitsPerChannel / 8)

	size := samples * channels * width
	if cap(s.scratch) < size {
		s.scratch = make([]byte, size)
	}
	buf := s.scratch[:size]

	off := 0
	for i := 0; i < samples; i++ {
		for ch := 0; ch < channels; ch++ {
			v := frame.Subframes[ch].Samples[i] << s.shift
			for b := 0; b < width; b++ {
				buf[off+b] = byte(v >> (8 * b))
			}
			off += width
		}
	}

	s.pending = buf
	return nil
}

// Close also closes the underlying reader when it is an io.Closer
func (s *flacStream) Close() error {
	return s.stream.Close()
}
