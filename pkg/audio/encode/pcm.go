// ABOUTME: PCM audio encoder
// ABOUTME: Encodes int32 samples to 16-bit or 24-bit little-endian PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(bitDepth int) (*PCMEncoder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}

	return &PCMEncoder{
		bitDepth: bitDepth,
	}, nil
}

// BytesPerSample returns the encoded width of one sample
func (e *PCMEncoder) BytesPerSample() int {
	return e.bitDepth / 8
}

// Encode converts int32 samples to PCM bytes
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	output := make([]byte, len(samples)*e.BytesPerSample())
	e.EncodeInto(output, samples)
	return output, nil
}

// EncodeInto converts samples without allocating
func (e *PCMEncoder) EncodeInto(dst []byte, samples []int32) int {
	width := e.BytesPerSample()
	n := len(dst) / width
	if n > len(samples) {
		n = len(samples)
	}

	if e.bitDepth == 24 {
		// 24-bit PCM: 3 bytes per sample
		for i := 0; i < n; i++ {
			b := audio.SampleTo24Bit(samples[i])
			dst[i*3] = b[0]
			dst[i*3+1] = b[1]
			dst[i*3+2] = b[2]
		}
	} else {
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(audio.SampleToInt16(samples[i])))
		}
	}

	return n * width
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
