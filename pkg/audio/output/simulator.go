// ABOUTME: Generic output device that renders without hardware
// ABOUTME: Drives the render function on its own goroutine and records what it produced
package output

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// SimulatorConfig controls the simulated render goroutine
type SimulatorConfig struct {
	// Desc is reported by Description; defaults to audio.GenericOutput
	Desc audio.ComponentDescription

	// FramesPerCycle is the frame count of every render request (default 512)
	FramesPerCycle uint32

	// Period between cycles; zero renders as fast as possible
	Period time.Duration

	// Failure injection
	InitializeStatus audio.Status
	StartStatus      audio.Status
}

// Simulator is an output device that records rendered audio instead of playing it
type Simulator struct {
	config SimulatorConfig

	// ctl serializes Start against teardown; Stop never takes it
	ctl sync.Mutex

	mu          sync.Mutex
	initialized bool
	disposed    bool
	format      audio.StreamFormat
	formatSet   bool
	running     bool
	generation  uint64
	stopCh      chan struct{}
	done        chan struct{}
	sampleTime  float64
	recorded    [][]byte

	cycles    int
	starts    int
	stops     int
	instances atomic.Int32

	render atomic.Pointer[RenderFunc]
}

// NewSimulator creates a simulator with defaults applied
func NewSimulator(config SimulatorConfig) *Simulator {
	if config.Desc == (audio.ComponentDescription{}) {
		config.Desc = audio.GenericOutput
	}
	if config.FramesPerCycle == 0 {
		config.FramesPerCycle = 512
	}
	return &Simulator{config: config}
}

// Component returns a registry entry that hands out this simulator.
// Every instantiation is counted.
func (s *Simulator) Component(desc audio.ComponentDescription) *Component {
	return &Component{
		Desc: desc,
		Name: "simulator",
		New: func() (Device, error) {
			s.instances.Add(1)
			return s, nil
		},
	}
}

// Description returns the configured component description
func (s *Simulator) Description() audio.ComponentDescription {
	return s.config.Desc
}

// Initialize prepares the simulator
func (s *Simulator) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return audio.StatusInstanceInvalidated
	}
	if s.config.InitializeStatus != audio.StatusOK {
		return s.config.InitializeStatus
	}
	s.initialized = true
	return nil
}

// Uninitialize stops rendering and waits for the render goroutine
func (s *Simulator) Uninitialize() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.Stop()
	s.waitDone()

	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()
	return nil
}

// SetStreamFormat sets the input format of the render function
func (s *Simulator) SetStreamFormat(scope Scope, element uint32, format audio.StreamFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !s.initialized {
		return audio.StatusUninitialized
	}
	if scope != ScopeInput {
		return audio.StatusInvalidScope
	}
	if element != 0 {
		return audio.StatusInvalidElement
	}
	if s.running {
		return audio.StatusPropertyNotWritable
	}
	if err := ValidateFormat(format); err != nil {
		return err
	}

	s.format = format
	s.formatSet = true
	return nil
}

// StreamFormat returns the input format
func (s *Simulator) StreamFormat(scope Scope, element uint32) (audio.StreamFormat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scope != ScopeInput {
		return audio.StreamFormat{}, audio.StatusInvalidScope
	}
	if element != 0 {
		return audio.StreamFormat{}, audio.StatusInvalidElement
	}
	if !s.formatSet {
		return audio.StreamFormat{}, audio.StatusInvalidPropertyValue
	}
	return s.format, nil
}

// SetRenderFunc replaces the render function
func (s *Simulator) SetRenderFunc(fn RenderFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !s.initialized {
		return audio.StatusUninitialized
	}
	if fn == nil {
		s.render.Store(nil)
	} else {
		s.render.Store(&fn)
	}
	return nil
}

// Start launches the render goroutine
func (s *Simulator) Start() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	// a previous run may still be returning from its last cycle
	s.waitDone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return audio.StatusInstanceInvalidated
	}
	if !s.initialized {
		return audio.StatusUninitialized
	}
	if s.config.StartStatus != audio.StatusOK {
		return s.config.StartStatus
	}
	if !s.formatSet {
		return audio.StatusFormatNotSupported
	}
	if s.running {
		return nil
	}

	s.running = true
	s.generation++
	s.starts++
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.generation, s.format, s.stopCh, s.done)
	return nil
}

// Stop halts rendering without waiting for the render goroutine
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.stops++
	close(s.stopCh)
	return nil
}

// IsRunning reports whether the render goroutine is active
func (s *Simulator) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Dispose stops rendering and invalidates the simulator
func (s *Simulator) Dispose() error {
	if err := s.Uninitialize(); err != nil {
		return err
	}
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	s.render.Store(nil)
	return nil
}

// Wait blocks until the current render goroutine has returned
func (s *Simulator) Wait() {
	s.waitDone()
}

func (s *Simulator) waitDone() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Simulator) loop(generation uint64, format audio.StreamFormat, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var ticker *time.Ticker
	if s.config.Period > 0 {
		ticker = time.NewTicker(s.config.Period)
		defer ticker.Stop()
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		s.cycle(generation, format)

		if ticker != nil {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}
}

// cycle runs one render request. Output is kept only when the render
// function succeeded and did not stop the run.
func (s *Simulator) cycle(generation uint64, format audio.StreamFormat) {
	var flags ActionFlags
	bufs, status := s.pull(format, &flags, s.nextTimeStamp(), 0, s.config.FramesPerCycle)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles++
	if status != audio.StatusOK {
		log.Printf("Simulator render cycle failed: %v", status)
		return
	}
	if !s.running || s.generation != generation {
		return
	}
	s.record(bufs)
}

func (s *Simulator) nextTimeStamp() TimeStamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := TimeStamp{
		SampleTime: s.sampleTime,
		HostTime:   uint64(time.Now().UnixNano()),
		Flags:      TimeStampSampleTimeValid | TimeStampHostTimeValid,
	}
	s.sampleTime += float64(s.config.FramesPerCycle)
	return ts
}

// pull builds fresh destination buffers and calls the render function
func (s *Simulator) pull(format audio.StreamFormat, flags *ActionFlags, ts TimeStamp, bus, frames uint32) ([]Buffer, audio.Status) {
	capacity := format.BytesForFrames(int(frames))
	channelsPerBuffer := format.ChannelsPerFrame
	if format.NonInterleaved() {
		channelsPerBuffer = 1
	}

	bufs := make([]Buffer, format.BufferCount())
	for i := range bufs {
		bufs[i] = Buffer{NumberChannels: channelsPerBuffer, Data: make([]byte, capacity)}
	}

	ptr := s.render.Load()
	if ptr == nil {
		silence := format.SilenceByte()
		for _, b := range bufs {
			for i := range b.Data {
				b.Data[i] = silence
			}
		}
		return bufs, audio.StatusOK
	}

	req := &RenderRequest{
		Flags:     flags,
		TimeStamp: ts,
		Bus:       bus,
		Frames:    frames,
		Buffers:   bufs,
	}
	return bufs, (*ptr)(req)
}

func (s *Simulator) record(bufs []Buffer) {
	if len(s.recorded) < len(bufs) {
		s.recorded = append(s.recorded, make([][]byte, len(bufs)-len(s.recorded))...)
	}
	for i, b := range bufs {
		s.recorded[i] = append(s.recorded[i], b.Data...)
	}
}

// Render pulls one cycle on the caller's goroutine. The simulator must be
// initialized with a format and must not be running.
func (s *Simulator) Render(flags *ActionFlags, ts TimeStamp, bus, frames uint32) ([]Buffer, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil, audio.StatusUninitialized
	}
	if !s.formatSet {
		s.mu.Unlock()
		return nil, audio.StatusFormatNotSupported
	}
	if s.running {
		s.mu.Unlock()
		return nil, audio.StatusCannotDoInCurrentContext
	}
	format := s.format
	s.mu.Unlock()

	if flags == nil {
		flags = new(ActionFlags)
	}
	bufs, status := s.pull(format, flags, ts, bus, frames)
	if status != audio.StatusOK {
		return nil, status
	}
	return bufs, nil
}

// Recorded returns a copy of everything recorded, one byte slice per buffer index
func (s *Simulator) Recorded() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.recorded))
	for i, b := range s.recorded {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// SimulatorStats counts simulator activity
type SimulatorStats struct {
	Cycles    int
	Starts    int
	Stops     int
	Instances int
}

// Stats returns activity counters
func (s *Simulator) Stats() SimulatorStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SimulatorStats{
		Cycles:    s.cycles,
		Starts:    s.starts,
		Stops:     s.stops,
		Instances: int(s.instances.Load()),
	}
}

var (
	_ Device = (*Simulator)(nil)
	_ Puller = (*Simulator)(nil)
)
