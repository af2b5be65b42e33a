// ABOUTME: Audio output device interface definition
// ABOUTME: Render request types shared by every playback backend
package output

import (
	"github.com/audiounit-go/caplay/pkg/audio"
)

// Scope selects which side of a device a property applies to
type Scope uint32

const (
	ScopeGlobal Scope = 0
	ScopeInput  Scope = 1
	ScopeOutput Scope = 2
)

// ActionFlags qualify a render cycle
type ActionFlags uint32

const (
	ActionPreRender       ActionFlags = 1 << 2
	ActionPostRender      ActionFlags = 1 << 3
	ActionOutputIsSilence ActionFlags = 1 << 4
	ActionPostRenderError ActionFlags = 1 << 8
)

// TimeStampFlags report which TimeStamp fields are valid
type TimeStampFlags uint32

const (
	TimeStampSampleTimeValid TimeStampFlags = 1 << 0
	TimeStampHostTimeValid   TimeStampFlags = 1 << 1
)

// TimeStamp locates a render cycle on the device timeline
type TimeStamp struct {
	SampleTime float64
	HostTime   uint64
	Flags      TimeStampFlags
}

// Buffer is one destination buffer of a render cycle.
// len(Data) is its declared capacity; Data is only valid during the call.
type Buffer struct {
	NumberChannels uint32
	Data           []byte
}

// RenderRequest is what a device hands its render function each cycle
type RenderRequest struct {
	Flags     *ActionFlags
	TimeStamp TimeStamp
	Bus       uint32
	Frames    uint32
	Buffers   []Buffer
}

// RenderFunc fills every buffer of req to capacity.
// It runs on the device's render goroutine and may call Stop on the device.
// A non-OK status marks the cycle failed and the device plays silence for it.
type RenderFunc func(req *RenderRequest) audio.Status

// Device is an output unit instance.
// Errors returned by its methods are audio.Status values.
type Device interface {
	// Description returns the component this device was created from
	Description() audio.ComponentDescription

	// Initialize prepares the device for configuration
	Initialize() error

	// Uninitialize stops and releases platform resources
	Uninitialize() error

	// SetStreamFormat sets the format of the frames the render function supplies
	SetStreamFormat(scope Scope, element uint32, format audio.StreamFormat) error

	// StreamFormat returns the format set on scope/element
	StreamFormat(scope Scope, element uint32) (audio.StreamFormat, error)

	// SetRenderFunc replaces the render function; nil clears it
	SetRenderFunc(fn RenderFunc) error

	// Start begins pulling frames on the render goroutine
	Start() error

	// Stop halts rendering. Safe to call from inside the render function.
	Stop() error

	// IsRunning reports whether the device is rendering
	IsRunning() bool

	// Dispose releases the instance; it cannot be used afterwards
	Dispose() error
}

// Puller is implemented by devices that can render a cycle on demand
type Puller interface {
	Render(flags *ActionFlags, ts TimeStamp, bus, frames uint32) ([]Buffer, error)
}
