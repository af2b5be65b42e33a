// ABOUTME: G.711 mu-law encoder
// ABOUTME: Compresses int32 samples to one mu-law byte per sample
package encode

import "github.com/audiounit-go/caplay/pkg/audio"

// ULawEncoder encodes samples to mu-law
type ULawEncoder struct{}

// NewULaw creates a mu-law encoder
func NewULaw() *ULawEncoder {
	return &ULawEncoder{}
}

// Encode converts int32 samples to mu-law bytes
func (e *ULawEncoder) Encode(samples []int32) ([]byte, error) {
	output := make([]byte, len(samples))
	e.EncodeInto(output, samples)
	return output, nil
}

// EncodeInto converts samples without allocating
func (e *ULawEncoder) EncodeInto(dst []byte, samples []int32) int {
	n := len(dst)
	if n > len(samples) {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		dst[i] = audio.LinearToULaw(audio.SampleToInt16(samples[i]))
	}
	return n
}

// Close releases resources
func (e *ULawEncoder) Close() error {
	return nil
}

var (
	_ Encoder = (*PCMEncoder)(nil)
	_ Encoder = (*ULawEncoder)(nil)
)
