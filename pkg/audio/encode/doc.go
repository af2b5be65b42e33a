// ABOUTME: Audio encoder package for encoding samples to device byte formats
// ABOUTME: Provides Encoder interface and implementations for PCM and mu-law
// Package encode provides audio encoders for output devices and streams.
//
// Supports: PCM (16-bit and 24-bit little-endian), G.711 mu-law
//
// All encoders accept int32 samples in 24-bit range.
//
// Example:
//
//	encoder, err := encode.NewPCM(16)
//	n := encoder.EncodeInto(out, samples)
package encode
