// ABOUTME: Network audio streams over WebSocket
// ABOUTME: Client source for playback and a broadcast server for files
// Package stream carries mu-law or Opus audio over a WebSocket.
//
// The client sends client/hello with the codecs it accepts, the server
// answers with stream/start describing the codec, rate and channel count,
// then every binary message carries one chunk of audio. A close frame ends
// the stream.
//
// Dial returns a Source: an io.Reader of raw bytes in Source.Format() that
// playback sessions can read from directly.
//
// Example:
//
//	src, err := stream.Dial(ctx, stream.ClientConfig{URL: "ws://host:8930/caplay"})
//	err = playback.Play(ctx, playback.Config{Format: src.Format()}, src)
package stream
