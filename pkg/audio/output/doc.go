// ABOUTME: Audio output package for pull-model playback devices
// ABOUTME: Provides the Device interface, component registry and backends
// Package output provides the platform layer that render callbacks drive.
//
// A Device owns a render goroutine. Once started it repeatedly asks its
// RenderFunc to fill a RenderRequest holding exactly the number of frames it
// needs, converts the result and plays it.
//
// Backends:
//   - Oto: system default output (auou/def /appl and auou/sys /appl)
//   - Malgo: miniaudio output with 24-bit support (auou/def /mnau)
//   - Simulator: generic output that records instead of playing (auou/genr/appl)
//
// Example:
//
//	c := output.DefaultRegistry.FindNext(nil, audio.DefaultOutput)
//	dev, err := c.New()
//	err = dev.Initialize()
//	err = dev.SetStreamFormat(output.ScopeInput, 0, audio.MuLaw8k())
//	err = dev.SetRenderFunc(fill)
//	err = dev.Start()
package output
