// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders
package encode

// Encoder encodes PCM int32 samples to bytes
type Encoder interface {
	// Encode converts samples to newly allocated encoded bytes
	Encode(samples []int32) ([]byte, error)

	// EncodeInto writes as many whole samples as fit in dst and returns the bytes written
	EncodeInto(dst []byte, samples []int32) int

	// Close releases encoder resources
	Close() error
}
