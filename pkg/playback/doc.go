// ABOUTME: Playback controller over an output unit
// ABOUTME: Session state machine, reader render policy and completion wait
// Package playback drives one output unit from a byte source until the
// source runs dry.
//
// A Session walks Created → DeviceOpened → FormatConfigured →
// CallbackRegistered → Running → Stopped, and Close tears everything down
// exactly once. The render goroutine owns the running flag once playback
// starts: when the source is exhausted it clears the flag under the session
// mutex, stops the unit and signals the waiting controller.
//
// Example:
//
//	err := playback.Play(ctx, playback.Config{Format: audio.MuLaw8k()}, f)
package playback
