// ABOUTME: Audio type definitions
// ABOUTME: Defines stream format descriptors, format identifiers and sample helpers
package audio

import (
	"fmt"
	"strings"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// FormatID identifies the encoding of a stream
type FormatID = FourCC

// Format identifiers understood by the built-in output devices
const (
	FormatLinearPCM FormatID = 'l'<<24 | 'p'<<16 | 'c'<<8 | 'm'
	FormatULaw      FormatID = 'u'<<24 | 'l'<<16 | 'a'<<8 | 'w'
	FormatALaw      FormatID = 'a'<<24 | 'l'<<16 | 'a'<<8 | 'w'
)

// FormatFlags qualify a FormatID
type FormatFlags uint32

const (
	FlagIsFloat          FormatFlags = 1 << 0
	FlagIsBigEndian      FormatFlags = 1 << 1
	FlagIsSignedInteger  FormatFlags = 1 << 2
	FlagIsPacked         FormatFlags = 1 << 3
	FlagIsAlignedHigh    FormatFlags = 1 << 4
	FlagIsNonInterleaved FormatFlags = 1 << 5
	FlagIsNonMixable     FormatFlags = 1 << 6

	// FlagsNativeEndian is zero on the little-endian hosts we run on
	FlagsNativeEndian FormatFlags = 0
)

// StreamFormat describes a stream of audio frames
type StreamFormat struct {
	SampleRate       float64
	FormatID         FormatID
	FormatFlags      FormatFlags
	BytesPerPacket   uint32
	FramesPerPacket  uint32
	BytesPerFrame    uint32
	ChannelsPerFrame uint32
	BitsPerChannel   uint32
}

// MuLaw8k returns the fixed 8kHz mono mu-law format played by caplaymu
func MuLaw8k() StreamFormat {
	return StreamFormat{
		SampleRate:       8000,
		FormatID:         FormatULaw,
		FormatFlags:      FlagIsNonInterleaved,
		BytesPerPacket:   1,
		FramesPerPacket:  1,
		BytesPerFrame:    1,
		ChannelsPerFrame: 1,
		BitsPerChannel:   8,
	}
}

// LinearPCM returns a packed, signed, little-endian integer PCM format
func LinearPCM(sampleRate, channels, bitDepth int, nonInterleaved bool) StreamFormat {
	bytesPerSample := uint32((bitDepth + 7) / 8)
	flags := FlagIsSignedInteger | FlagIsPacked | FlagsNativeEndian
	bytesPerFrame := bytesPerSample * uint32(channels)
	if nonInterleaved {
		flags |= FlagIsNonInterleaved
		bytesPerFrame = bytesPerSample
	}

	return StreamFormat{
		SampleRate:       float64(sampleRate),
		FormatID:         FormatLinearPCM,
		FormatFlags:      flags,
		BytesPerPacket:   bytesPerFrame,
		FramesPerPacket:  1,
		BytesPerFrame:    bytesPerFrame,
		ChannelsPerFrame: uint32(channels),
		BitsPerChannel:   uint32(bitDepth),
	}
}

// NonInterleaved reports whether each channel lives in its own buffer
func (f StreamFormat) NonInterleaved() bool {
	return f.FormatFlags&FlagIsNonInterleaved != 0
}

// BufferCount returns how many buffers a render request carries for this format
func (f StreamFormat) BufferCount() int {
	if f.NonInterleaved() && f.ChannelsPerFrame > 1 {
		return int(f.ChannelsPerFrame)
	}
	return 1
}

// BytesForFrames returns the capacity of one render buffer holding n frames.
// For non-interleaved formats BytesPerFrame already describes a single channel.
func (f StreamFormat) BytesForFrames(n int) int {
	return n * int(f.BytesPerFrame)
}

// SilenceByte returns the byte value that encodes zero amplitude
func (f StreamFormat) SilenceByte() byte {
	switch f.FormatID {
	case FormatULaw:
		return 0xFF
	case FormatALaw:
		return 0xD5
	case FormatLinearPCM:
		if f.BitsPerChannel == 8 && f.FormatFlags&(FlagIsSignedInteger|FlagIsFloat) == 0 {
			return 0x80
		}
	}
	return 0
}

// String renders the format the way the original tooling prints it
func (f StreamFormat) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%gHz %s %dch %dbit", f.SampleRate, f.FormatID, f.ChannelsPerFrame, f.BitsPerChannel)
	if f.NonInterleaved() {
		b.WriteString(" non-interleaved")
	}
	if f.FormatFlags&FlagIsFloat != 0 {
		b.WriteString(" float")
	}
	if f.FormatFlags&FlagIsBigEndian != 0 {
		b.WriteString(" big-endian")
	}
	return b.String()
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}
