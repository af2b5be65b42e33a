// ABOUTME: Oto-based output device implementation
// ABOUTME: Pulls frames from the render function on oto's mixer goroutine
package output

import (
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto allows exactly one context per process; every Oto device shares it
var otoShared struct {
	mu         sync.Mutex
	ctx        *oto.Context
	sampleRate int
	channels   int
}

// acquireOtoContext returns the process context, creating it on first use.
// A request for a different rate or channel count cannot be honoured.
func acquireOtoContext(sampleRate, channels int) (*oto.Context, error) {
	otoShared.mu.Lock()
	defer otoShared.mu.Unlock()

	if otoShared.ctx != nil {
		if otoShared.sampleRate != sampleRate || otoShared.channels != channels {
			log.Printf("Warning: oto context is fixed at %dHz %dch, cannot play %dHz %dch",
				otoShared.sampleRate, otoShared.channels, sampleRate, channels)
			return nil, audio.StatusFormatNotSupported
		}
		return otoShared.ctx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		log.Printf("Failed to create oto context: %v", err)
		return nil, audio.StatusFailedInitialization
	}
	<-readyChan

	otoShared.ctx = ctx
	otoShared.sampleRate = sampleRate
	otoShared.channels = channels

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return ctx, nil
}

// otoCompatible reports whether the shared context, if any, can play f
func otoCompatible(f audio.StreamFormat) bool {
	otoShared.mu.Lock()
	defer otoShared.mu.Unlock()
	return otoShared.ctx == nil ||
		(otoShared.sampleRate == int(f.SampleRate) && otoShared.channels == int(f.ChannelsPerFrame))
}

// Oto is an output device backed by the system mixer
type Oto struct {
	desc audio.ComponentDescription

	mu          sync.Mutex
	initialized bool
	disposed    bool
	format      audio.StreamFormat
	formatSet   bool
	render      atomic.Pointer[RenderFunc]
	run         *otoRun
}

// otoRun is the io.Reader oto pulls from during one Start/Stop run
type otoRun struct {
	dev       *Oto
	conv      *converter
	player    *oto.Player
	stopped   atomic.Bool
	frameSize int
}

// NewOto creates an Oto device that reports desc as its component
func NewOto(desc audio.ComponentDescription) *Oto {
	return &Oto{desc: desc}
}

// Description returns the component this device was created from
func (o *Oto) Description() audio.ComponentDescription {
	return o.desc
}

// Initialize prepares the device
func (o *Oto) Initialize() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed {
		return audio.StatusInstanceInvalidated
	}
	o.initialized = true
	return nil
}

// Uninitialize stops playback
func (o *Oto) Uninitialize() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	o.initialized = false
	return nil
}

// SetStreamFormat sets the input format of the render function
func (o *Oto) SetStreamFormat(scope Scope, element uint32, format audio.StreamFormat) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkFormatTarget(scope, element); err != nil {
		return err
	}
	if o.run != nil {
		return audio.StatusPropertyNotWritable
	}
	if err := ValidateFormat(format); err != nil {
		return err
	}
	if !otoCompatible(format) {
		return audio.StatusFormatNotSupported
	}

	o.format = format
	o.formatSet = true
	return nil
}

// StreamFormat returns the input format
func (o *Oto) StreamFormat(scope Scope, element uint32) (audio.StreamFormat, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if scope != ScopeInput {
		return audio.StreamFormat{}, audio.StatusInvalidScope
	}
	if element != 0 {
		return audio.StreamFormat{}, audio.StatusInvalidElement
	}
	if !o.formatSet {
		return audio.StreamFormat{}, audio.StatusInvalidPropertyValue
	}
	return o.format, nil
}

func (o *Oto) checkFormatTarget(scope Scope, element uint32) error {
	if o.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !o.initialized {
		return audio.StatusUninitialized
	}
	if scope != ScopeInput {
		return audio.StatusInvalidScope
	}
	if element != 0 {
		return audio.StatusInvalidElement
	}
	return nil
}

// SetRenderFunc replaces the render function
func (o *Oto) SetRenderFunc(fn RenderFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !o.initialized {
		return audio.StatusUninitialized
	}
	if fn == nil {
		o.render.Store(nil)
	} else {
		o.render.Store(&fn)
	}
	return nil
}

// Start creates a player that pulls from the render function
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !o.initialized {
		return audio.StatusUninitialized
	}
	if o.run != nil {
		return nil
	}
	if !o.formatSet {
		return audio.StatusFormatNotSupported
	}

	conv, err := newConverter(o.format, 16)
	if err != nil {
		return err
	}
	ctx, err := acquireOtoContext(int(o.format.SampleRate), int(o.format.ChannelsPerFrame))
	if err != nil {
		return err
	}

	run := &otoRun{
		dev:       o,
		conv:      conv,
		frameSize: 2 * int(o.format.ChannelsPerFrame),
	}
	run.player = ctx.NewPlayer(run)
	o.run = run
	run.player.Play()

	log.Printf("Oto output started: %s", o.format)
	return nil
}

// Stop marks the current run finished. It never waits on the mixer
// so the render function may call it.
func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	return nil
}

func (o *Oto) stopLocked() {
	run := o.run
	if run == nil {
		return
	}
	o.run = nil
	run.stopped.Store(true)
	go run.player.Pause()
}

// IsRunning reports whether a run is active
func (o *Oto) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run != nil
}

// Dispose releases the device. The shared oto context stays alive for later devices.
func (o *Oto) Dispose() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
	o.initialized = false
	o.disposed = true
	o.render.Store(nil)
	return nil
}

// Read is called by oto's mixer goroutine
func (r *otoRun) Read(p []byte) (int, error) {
	if r.stopped.Load() {
		return 0, io.EOF
	}

	frames := len(p) / r.frameSize
	if frames == 0 {
		return 0, nil
	}
	out := p[:frames*r.frameSize]

	var fn RenderFunc
	if ptr := r.dev.render.Load(); ptr != nil {
		fn = *ptr
	}
	if status := r.conv.render(fn, out, frames); status != audio.StatusOK && fn != nil {
		log.Printf("Render cycle failed: %v", status)
	}

	// Stopped from inside the render function: nothing more to play
	if r.stopped.Load() {
		return 0, io.EOF
	}
	return len(out), nil
}

var _ Device = (*Oto)(nil)
