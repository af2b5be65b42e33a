// ABOUTME: AudioUnit-style output API over pluggable devices
// ABOUTME: Lifecycle, render callback bridge and error taxonomy
// Package audiounit exposes output units the way the platform API does:
// find a component, instantiate it, initialize it, set the stream format,
// register a render callback, then start and stop it.
//
// The device pulls audio. Each cycle the bridge hands the callback a
// RenderArgs and expects a RenderResult holding exactly one buffer per
// destination buffer, each exactly the destination's capacity. A result with
// no data stops the unit; anything else of the wrong shape is a protocol
// violation that is logged and also stops the unit.
//
// Example:
//
//	u, err := audiounit.OpenDefaultOutput(nil)
//	err = u.SetStreamFormat(audio.MuLaw8k())
//	err = u.SetRenderCallback(func(args audiounit.RenderArgs) audiounit.RenderResult {
//		buf := make([]byte, args.BufferSize)
//		n, _ := io.ReadFull(src, buf)
//		if n == 0 {
//			return audiounit.NoData()
//		}
//		return audiounit.Continue(buf)
//	}, nil)
//	err = u.Start()
package audiounit
