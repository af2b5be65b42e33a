// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts streamed audio between sample rates chunk by chunk
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates and
// carries the last frame of each chunk into the next, so a stream can be
// fed in arbitrary pieces.
//
// Example:
//
//	r := resample.New(44100, 8000, 1)
//	out := make([]int32, r.OutputSamplesNeeded(len(in)))
//	n := r.Resample(in, out)
package resample
