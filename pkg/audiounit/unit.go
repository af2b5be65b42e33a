// ABOUTME: AudioUnit lifecycle over an output device
// ABOUTME: Initialize, configure, register callbacks, start and stop with a single stop notification per run
package audiounit

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/output"
)

// StopHandler is called once per run when the unit stops.
// reason is nil for an explicit Stop, ErrSourceExhausted when the source ran dry,
// or the error that made the render path stop the unit.
// It may run on the device's render goroutine and must not block.
type StopHandler func(reason error)

// AudioUnit is an instance of an output component
type AudioUnit struct {
	component *output.Component
	device    output.Device

	// ctl serializes lifecycle calls that may wait on the device.
	// The render path never takes it.
	ctl sync.Mutex

	// mu guards registration and run state; held only briefly
	mu          sync.Mutex
	initialized bool
	disposed    bool
	running     bool
	onStop      StopHandler
	renderErr   error

	binding atomic.Pointer[binding]

	// execMu serializes callback execution
	execMu sync.Mutex
}

func newUnit(c *output.Component, dev output.Device) *AudioUnit {
	return &AudioUnit{component: c, device: dev}
}

// Component returns the component the unit was instantiated from
func (u *AudioUnit) Component() *output.Component {
	return u.component
}

// Device returns the underlying platform device
func (u *AudioUnit) Device() output.Device {
	return u.device
}

func (u *AudioUnit) invalidated(op string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disposed {
		return &Error{Op: op, Status: audio.StatusInstanceInvalidated, Kind: ErrDeviceError}
	}
	return nil
}

// Initialize initializes the device and installs the bridge as its render function
func (u *AudioUnit) Initialize() error {
	u.ctl.Lock()
	defer u.ctl.Unlock()

	if err := u.invalidated("Initialize"); err != nil {
		return err
	}
	if err := u.device.Initialize(); err != nil {
		return opError("Initialize", ErrInitializationFailed, err)
	}
	if err := u.device.SetRenderFunc(u.render); err != nil {
		_ = u.device.Uninitialize()
		return opError("Initialize", ErrInitializationFailed, err)
	}

	u.mu.Lock()
	u.initialized = true
	u.mu.Unlock()
	return nil
}

// Uninitialize stops the unit and releases the device's platform resources
func (u *AudioUnit) Uninitialize() error {
	u.ctl.Lock()
	defer u.ctl.Unlock()
	return u.uninitializeLocked()
}

func (u *AudioUnit) uninitializeLocked() error {
	u.mu.Lock()
	initialized := u.initialized
	u.initialized = false
	u.mu.Unlock()
	if !initialized {
		return nil
	}

	stopErr := u.halt(nil)
	if err := u.device.Uninitialize(); err != nil {
		return errors.Join(stopErr, opError("Uninitialize", ErrDeviceError, err))
	}
	return stopErr
}

// SetStreamFormat sets the format of the frames the render callback supplies
func (u *AudioUnit) SetStreamFormat(format audio.StreamFormat) error {
	return u.SetStreamFormatAt(output.ScopeInput, 0, format)
}

// SetStreamFormatAt sets the stream format on a specific scope and element.
// The value is applied verbatim; the device decides what it can play.
func (u *AudioUnit) SetStreamFormatAt(scope output.Scope, element uint32, format audio.StreamFormat) error {
	u.ctl.Lock()
	defer u.ctl.Unlock()

	if err := u.invalidated("SetStreamFormat"); err != nil {
		return err
	}
	if err := u.device.SetStreamFormat(scope, element, format); err != nil {
		kind := ErrDeviceError
		switch StatusOf(err) {
		case audio.StatusFormatNotSupported, audio.StatusInvalidPropertyValue:
			kind = ErrFormatRejected
		}
		return opError("SetStreamFormat", kind, err)
	}
	return nil
}

// StreamFormat returns the input format of element 0
func (u *AudioUnit) StreamFormat() (audio.StreamFormat, error) {
	f, err := u.device.StreamFormat(output.ScopeInput, 0)
	if err != nil {
		return audio.StreamFormat{}, opError("StreamFormat", ErrDeviceError, err)
	}
	return f, nil
}

// SetRenderFunc registers a function that writes straight into the device buffers.
// It replaces any previous registration; nil clears it.
func (u *AudioUnit) SetRenderFunc(fn output.RenderFunc) error {
	if fn == nil {
		return u.setBinding(nil)
	}
	return u.setBinding(&binding{direct: fn})
}

// SetRenderCallback registers cb with its user data.
// It replaces any previous registration; a nil cb clears it.
func (u *AudioUnit) SetRenderCallback(cb RenderCallback, userData any) error {
	if cb == nil {
		return u.setBinding(nil)
	}
	return u.setBinding(&binding{callback: cb, userData: userData})
}

func (u *AudioUnit) setBinding(b *binding) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return &Error{Op: "SetRenderCallback", Status: audio.StatusInstanceInvalidated, Kind: ErrDeviceError}
	}
	if !u.initialized {
		return &Error{Op: "SetRenderCallback", Status: audio.StatusUninitialized, Kind: ErrDeviceError}
	}
	u.binding.Store(b)
	return nil
}

// SetStopHandler replaces the stop handler
func (u *AudioUnit) SetStopHandler(fn StopHandler) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onStop = fn
}

// Start begins rendering. Starting a running unit does nothing.
func (u *AudioUnit) Start() error {
	u.ctl.Lock()
	defer u.ctl.Unlock()

	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return &Error{Op: "Start", Status: audio.StatusInstanceInvalidated, Kind: ErrDeviceError}
	}
	if u.running {
		u.mu.Unlock()
		return nil
	}
	// set before the device starts so a first-cycle stop is not lost
	u.running = true
	u.mu.Unlock()

	if err := u.device.Start(); err != nil {
		u.mu.Lock()
		u.running = false
		u.mu.Unlock()
		return opError("Start", ErrDeviceError, err)
	}
	return nil
}

// Stop halts rendering. It is idempotent and safe to call from a render callback.
func (u *AudioUnit) Stop() error {
	return u.halt(nil)
}

// halt stops the device once per run and notifies the stop handler
func (u *AudioUnit) halt(reason error) error {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return nil
	}
	u.running = false
	err := u.device.Stop()
	handler := u.onStop
	u.mu.Unlock()

	if handler != nil {
		handler(reason)
	}
	return opError("Stop", ErrDeviceError, err)
}

// IsRunning reports whether the unit is rendering
func (u *AudioUnit) IsRunning() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

// Render pulls one cycle on the caller's goroutine. Only devices that can
// render offline support it.
func (u *AudioUnit) Render(flags *output.ActionFlags, ts output.TimeStamp, bus, frames uint32) ([]output.Buffer, error) {
	if err := u.invalidated("Render"); err != nil {
		return nil, err
	}
	puller, ok := u.device.(output.Puller)
	if !ok {
		return nil, &Error{Op: "Render", Status: audio.StatusCannotDoInCurrentContext, Kind: ErrDeviceError}
	}

	u.takeRenderErr()
	bufs, err := puller.Render(flags, ts, bus, frames)
	if err != nil {
		rerr := u.takeRenderErr()
		if rerr == nil {
			return nil, opError("Render", ErrDeviceError, err)
		}
		kind := ErrDeviceError
		if errors.Is(rerr, ErrCallbackProtocol) {
			kind = ErrCallbackProtocol
		}
		return nil, &Error{Op: "Render", Status: StatusOf(err), Kind: kind, Err: rerr}
	}
	return bufs, nil
}

func (u *AudioUnit) setRenderErr(err error) {
	u.mu.Lock()
	u.renderErr = err
	u.mu.Unlock()
}

func (u *AudioUnit) takeRenderErr() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	err := u.renderErr
	u.renderErr = nil
	return err
}

// Dispose stops and uninitializes the unit and releases the device.
// Disposing twice does nothing.
func (u *AudioUnit) Dispose() error {
	u.ctl.Lock()
	defer u.ctl.Unlock()

	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	uninitErr := u.uninitializeLocked()

	u.mu.Lock()
	u.disposed = true
	u.binding.Store(nil)
	u.mu.Unlock()

	if err := u.device.Dispose(); err != nil {
		return errors.Join(uninitErr, opError("Dispose", ErrDeviceError, err))
	}
	log.Printf("Disposed output unit: %s", u.component.Desc)
	return uninitErr
}
