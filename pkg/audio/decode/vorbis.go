// ABOUTME: Ogg Vorbis file reader
// ABOUTME: Decodes Vorbis to interleaved float32 PCM bytes
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

type vorbisStream struct {
	reader  *oggvorbis.Reader
	format  audio.StreamFormat
	samples []float32
	closer  io.Closer
}

// NewVorbis creates a stream of interleaved 32-bit float frames
func NewVorbis(r io.Reader) (Stream, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create vorbis decoder: %w", err)
	}

	format := audio.LinearPCM(reader.SampleRate(), reader.Channels(), 32, false)
	format.FormatFlags = audio.FlagIsFloat | audio.FlagIsPacked

	s := &vorbisStream{
		reader: reader,
		format: format,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

func (s *vorbisStream) Format() audio.StreamFormat { return s.format }

func (s *vorbisStream) Read(p []byte) (int, error) {
	want := len(p) / 4
	if want == 0 {
		return 0, nil
	}
	if cap(s.samples) < want {
		s.samples = make([]float32, want)
	}

	n, err := s.reader.Read(s.samples[:want])
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s.samples[i]))
	}
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n * 4, err
}

func (s *vorbisStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
