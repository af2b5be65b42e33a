// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines StreamFormat, FourCC identifiers, status codes and G.711 tables
// Package audio provides the descriptors shared by output devices and render callbacks.
//
// This package defines core types used throughout caplay:
//   - StreamFormat: sample rate, encoding, bit depth and frame/packet geometry
//   - ComponentDescription: type/subtype/manufacturer triple used to find an output unit
//   - Status: platform result codes returned by devices
//
// It also provides sample utilities:
//   - mu-law and A-law expansion (G.711)
//   - 16-bit ↔ 24-bit conversions
//
// Example:
//
//	format := audio.MuLaw8k()
//	fmt.Println(format) // 8000Hz ulaw 1ch 8bit non-interleaved
//
//	sample := audio.ULawToLinear(0x00) // -32124
package audio
