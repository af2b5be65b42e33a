// ABOUTME: Opus encoder and decoder for network streams
// ABOUTME: Wraps libopus to move 16-bit PCM frames in and out of Opus packets
package stream

import (
	"encoding/binary"
	"fmt"
	"log"

	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is 120ms at 48kHz, the longest frame an Opus packet can hold
const maxOpusFrame = 5760

// OpusEncoder wraps the Opus encoder
type OpusEncoder struct {
	encoder    *opus.Encoder
	sampleRate int
	channels   int
	frameSize  int // samples per channel per frame
	output     []byte
}

// NewOpusEncoder creates a new Opus encoder
// frameSize is in samples per channel (e.g., 960 for 20ms at 48kHz)
func NewOpusEncoder(sampleRate, channels, frameSize int) (*OpusEncoder, error) {
	encoder, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	// 64 kbps per channel
	bitrate := 64000 * channels
	if err := encoder.SetBitrate(bitrate); err != nil {
		log.Printf("Warning: Failed to set Opus bitrate: %v", err)
	}

	return &OpusEncoder{
		encoder:    encoder,
		sampleRate: sampleRate,
		channels:   channels,
		frameSize:  frameSize,
		// Opus packets never exceed 4000 bytes
		output: make([]byte, 4000),
	}, nil
}

// FrameSize returns the samples per channel each Encode call expects
func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Encode encodes interleaved PCM samples to one Opus packet
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	n, err := e.encoder.Encode(pcm, e.output)
	if err != nil {
		return nil, fmt.Errorf("opus encode failed: %w", err)
	}

	packet := make([]byte, n)
	copy(packet, e.output[:n])
	return packet, nil
}

// OpusDecoder turns Opus packets into little-endian 16-bit PCM bytes
type OpusDecoder struct {
	decoder  *opus.Decoder
	channels int
	pcm      []int16
}

// NewOpusDecoder creates a decoder for the given rate and channel count
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	decoder, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:  decoder,
		channels: channels,
		pcm:      make([]int16, maxOpusFrame*channels),
	}, nil
}

// Decode decodes one packet and returns its interleaved PCM bytes
func (d *OpusDecoder) Decode(packet []byte) ([]byte, error) {
	n, err := d.decoder.Decode(packet, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	samples := d.pcm[:n*d.channels]
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out, nil
}
