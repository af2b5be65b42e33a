// ABOUTME: File stream readers
// ABOUTME: Opens audio files by extension and exposes their raw frames and format
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// fileStream pairs decoded bytes with the file that backs them
type fileStream struct {
	io.Reader
	format audio.StreamFormat
	closer io.Closer
}

func (s *fileStream) Format() audio.StreamFormat { return s.format }

func (s *fileStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// NewRaw wraps a headerless byte stream whose format is known up front
func NewRaw(r io.Reader, format audio.StreamFormat) Stream {
	s := &fileStream{Reader: r, format: format}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenFile opens path and picks a reader from its extension.
// Headerless files (.ul, .ulaw, .mu, .raw) are treated as 8kHz mono mu-law.
func OpenFile(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var s Stream
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ul", ".ulaw", ".mu", ".raw":
		return NewRaw(f, audio.MuLaw8k()), nil
	case ".wav", ".wave":
		s, err = NewWAV(f)
	case ".mp3":
		s, err = NewMP3(f)
	case ".flac":
		s, err = NewFLAC(f)
	case ".ogg", ".oga":
		s, err = NewVorbis(f)
	default:
		err = fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return s, nil
}
