// ABOUTME: Decoder and file stream interface definitions
// ABOUTME: Common interfaces for sample decoders and file readers
package decode

import (
	"io"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// Decoder decodes audio in various formats to PCM int32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// Stream is an open audio file producing raw bytes in its StreamFormat
type Stream interface {
	io.Reader

	// Format describes the bytes returned by Read
	Format() audio.StreamFormat

	// Close releases the underlying file
	Close() error
}
