// ABOUTME: MP3 file reader
// ABOUTME: Decodes MP3 to 16-bit stereo PCM bytes
package decode

import (
	"fmt"
	"io"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// NewMP3 creates a stream of 16-bit little-endian stereo frames.
// go-mp3 always produces two channels, mono files are duplicated.
func NewMP3(r io.Reader) (Stream, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	s := &fileStream{
		Reader: decoder,
		format: audio.LinearPCM(decoder.SampleRate(), 2, 16, false),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}
