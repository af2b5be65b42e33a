// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides PCM sample decoding and file readers for raw mu-law, WAV, MP3, FLAC, Ogg Vorbis
// Package decode turns encoded audio into something an output device can play.
//
// Two layers live here:
//   - PCMDecoder: converts bytes in any supported StreamFormat (mu-law, A-law,
//     8/16/24/32-bit integer, float32) to int32 samples in 24-bit range
//   - Stream readers: open a file and yield raw bytes plus the StreamFormat
//     describing them, ready to be handed to a render callback
//
// Example:
//
//	stream, err := decode.OpenFile("greeting.wav")
//	format := stream.Format()
//	n, err := stream.Read(buf)
package decode
