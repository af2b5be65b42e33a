// ABOUTME: Malgo-based output device implementation with 24-bit support
// ABOUTME: Uses miniaudio via malgo; the data callback pulls from the render function
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo output device using the malgo/miniaudio library
type Malgo struct {
	mu          sync.Mutex
	malgoCtx    *malgo.AllocatedContext
	initialized bool
	disposed    bool
	format      audio.StreamFormat
	formatSet   bool
	render      atomic.Pointer[RenderFunc]
	run         *malgoRun

	// teardown of stopped runs happens off the audio thread
	teardown sync.WaitGroup
}

// malgoRun is one Start/Stop cycle of a miniaudio device
type malgoRun struct {
	device  *malgo.Device
	conv    *converter
	stopped atomic.Bool
}

// NewMalgo creates a new Malgo output device
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Description returns the miniaudio default output component
func (m *Malgo) Description() audio.ComponentDescription {
	return audio.ComponentDescription{
		Type:         audio.TypeOutput,
		SubType:      audio.SubTypeDefaultOutput,
		Manufacturer: ManufacturerMiniaudio,
	}
}

// Initialize creates the miniaudio context
func (m *Malgo) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return audio.StatusInstanceInvalidated
	}
	if m.initialized {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Printf("Failed to initialize malgo context: %v", err)
		return audio.StatusFailedInitialization
	}
	m.malgoCtx = ctx
	m.initialized = true
	return nil
}

// Uninitialize stops playback and releases the miniaudio context
func (m *Malgo) Uninitialize() error {
	m.mu.Lock()
	m.stopLocked()
	ctx := m.malgoCtx
	m.malgoCtx = nil
	m.initialized = false
	m.mu.Unlock()

	m.teardown.Wait()

	if ctx != nil {
		if err := ctx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		ctx.Free()
	}
	return nil
}

// SetStreamFormat sets the input format of the render function
func (m *Malgo) SetStreamFormat(scope Scope, element uint32, format audio.StreamFormat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !m.initialized {
		return audio.StatusUninitialized
	}
	if scope != ScopeInput {
		return audio.StatusInvalidScope
	}
	if element != 0 {
		return audio.StatusInvalidElement
	}
	if m.run != nil {
		return audio.StatusPropertyNotWritable
	}
	if err := ValidateFormat(format); err != nil {
		return err
	}

	m.format = format
	m.formatSet = true
	return nil
}

// StreamFormat returns the input format
func (m *Malgo) StreamFormat(scope Scope, element uint32) (audio.StreamFormat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if scope != ScopeInput {
		return audio.StreamFormat{}, audio.StatusInvalidScope
	}
	if element != 0 {
		return audio.StreamFormat{}, audio.StatusInvalidElement
	}
	if !m.formatSet {
		return audio.StreamFormat{}, audio.StatusInvalidPropertyValue
	}
	return m.format, nil
}

// SetRenderFunc replaces the render function
func (m *Malgo) SetRenderFunc(fn RenderFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !m.initialized {
		return audio.StatusUninitialized
	}
	if fn == nil {
		m.render.Store(nil)
	} else {
		m.render.Store(&fn)
	}
	return nil
}

// Start opens a playback device matching the stream format and starts it
func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !m.initialized {
		return audio.StatusUninitialized
	}
	if m.run != nil {
		return nil
	}
	if !m.formatSet {
		return audio.StatusFormatNotSupported
	}

	// 24-bit and wider sources keep their resolution
	bitDepth := 16
	format := malgo.FormatS16
	if m.format.BitsPerChannel > 16 {
		bitDepth = 24
		format = malgo.FormatS24
	}

	conv, err := newConverter(m.format, bitDepth)
	if err != nil {
		return err
	}
	run := &malgoRun{conv: conv}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = m.format.ChannelsPerFrame
	deviceConfig.SampleRate = uint32(m.format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		m.dataCallback(run, pOutputSample, frameCount)
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		log.Printf("Failed to initialize playback device: %v", err)
		return audio.StatusNoConnection
	}
	run.device = device
	m.run = run

	if err := device.Start(); err != nil {
		m.run = nil
		device.Uninit()
		log.Printf("Failed to start device: %v", err)
		return audio.StatusCannotDoInCurrentContext
	}

	log.Printf("Audio output initialized: %s (malgo/%s)", m.format, formatName(format))
	return nil
}

// dataCallback is called by miniaudio to fill the audio output buffer
func (m *Malgo) dataCallback(run *malgoRun, pOutput []byte, frameCount uint32) {
	if run.stopped.Load() {
		clear(pOutput)
		return
	}

	var fn RenderFunc
	if ptr := m.render.Load(); ptr != nil {
		fn = *ptr
	}
	if status := run.conv.render(fn, pOutput, int(frameCount)); status != audio.StatusOK && fn != nil {
		log.Printf("Render cycle failed: %v", status)
	}
	if run.stopped.Load() {
		clear(pOutput)
	}
}

// Stop marks the current run finished; the miniaudio device is torn down
// on another goroutine because it cannot be stopped from its own callback.
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return nil
}

func (m *Malgo) stopLocked() {
	run := m.run
	if run == nil {
		return
	}
	m.run = nil
	run.stopped.Store(true)

	m.teardown.Add(1)
	go func() {
		defer m.teardown.Done()
		if err := run.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		run.device.Uninit()
	}()
}

// IsRunning reports whether a run is active
func (m *Malgo) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run != nil
}

// Dispose releases all resources
func (m *Malgo) Dispose() error {
	if err := m.Uninitialize(); err != nil {
		return err
	}
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()
	m.render.Store(nil)
	return nil
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}

var _ Device = (*Malgo)(nil)
