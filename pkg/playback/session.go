// ABOUTME: Playback session state machine
// ABOUTME: Owns the unit, the source and the mutex/cond pair used to wait for completion
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/output"
	"github.com/audiounit-go/caplay/pkg/audiounit"
)

// ErrInvalidState is returned for calls made out of order
var ErrInvalidState = errors.New("invalid session state")

// State is the lifecycle position of a Session
type State int

const (
	StateCreated State = iota
	StateDeviceOpened
	StateFormatConfigured
	StateCallbackRegistered
	StateRunning
	StateStopped
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateDeviceOpened:
		return "device-opened"
	case StateFormatConfigured:
		return "format-configured"
	case StateCallbackRegistered:
		return "callback-registered"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds session configuration
type Config struct {
	// Registry to open the device from; nil uses output.DefaultRegistry
	Registry *output.Registry
	// Component to open; zero uses the default output
	Component audio.ComponentDescription
	// Format of the source bytes; zero uses 8kHz mono mu-law
	Format audio.StreamFormat
}

// Session plays one source on one output unit
type Session struct {
	id     string
	config Config
	unit   *audiounit.AudioUnit

	source   io.Reader
	callback bool

	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	running bool
	reason  error

	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a session with defaults applied
func NewSession(config Config) *Session {
	if config.Registry == nil {
		config.Registry = output.DefaultRegistry
	}
	if config.Component == (audio.ComponentDescription{}) {
		config.Component = audiounit.DefaultOutputDescription
	}
	if config.Format == (audio.StreamFormat{}) {
		config.Format = audio.MuLaw8k()
	}

	s := &Session{
		id:     uuid.NewString(),
		config: config,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// ID returns the session identifier used in log lines
func (s *Session) ID() string {
	return s.id
}

// Unit returns the output unit once the device is open
func (s *Session) Unit() *audiounit.AudioUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unit
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether playback is in progress
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Err returns the error that ended the last run, if it did not end normally
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return failure(s.reason)
}

func failure(reason error) error {
	if reason == nil || errors.Is(reason, audiounit.ErrSourceExhausted) {
		return nil
	}
	return reason
}

// expect fails with ErrInvalidState unless the session is in one of from
func (s *Session) expect(op string, from ...State) error {
	for _, st := range from {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%s: %w: session is %s", op, ErrInvalidState, s.state)
}

// Open finds, instantiates and initializes the output unit
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("Open", StateCreated); err != nil {
		return err
	}

	unit, err := audiounit.Open(s.config.Registry, s.config.Component)
	if err != nil {
		return err
	}
	unit.SetStopHandler(s.unitStopped)

	s.unit = unit
	s.state = StateDeviceOpened
	return nil
}

// Configure applies the stream format
func (s *Session) Configure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("Configure", StateDeviceOpened); err != nil {
		return err
	}
	if err := s.unit.SetStreamFormat(s.config.Format); err != nil {
		return err
	}

	log.Printf("Session %s: stream format %s", s.id, s.config.Format)
	s.state = StateFormatConfigured
	return nil
}

// UseReader plays r with the reader render policy. Close closes r when it is an io.Closer.
func (s *Session) UseReader(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("UseReader", StateFormatConfigured); err != nil {
		return err
	}

	rr := NewReaderRenderer(r, s.config.Format, s.finish)
	if err := s.unit.SetRenderFunc(rr.Render); err != nil {
		return err
	}

	s.source = r
	s.state = StateCallbackRegistered
	return nil
}

// UseCallback plays whatever cb returns. A callback session may be started again after it stops.
func (s *Session) UseCallback(cb audiounit.RenderCallback, userData any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("UseCallback", StateFormatConfigured, StateStopped); err != nil {
		return err
	}
	if s.state == StateStopped && !s.callback {
		return fmt.Errorf("UseCallback: %w: reader session already played", ErrInvalidState)
	}
	if err := s.unit.SetRenderCallback(cb, userData); err != nil {
		return err
	}

	s.callback = true
	if s.state == StateFormatConfigured {
		s.state = StateCallbackRegistered
	}
	return nil
}

// Start begins playback
func (s *Session) Start() error {
	s.mu.Lock()
	if err := s.expect("Start", StateCallbackRegistered, StateStopped); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state == StateStopped && !s.callback {
		s.mu.Unlock()
		return fmt.Errorf("Start: %w: reader session already played", ErrInvalidState)
	}
	s.running = true
	s.reason = nil
	s.state = StateRunning
	unit := s.unit
	s.mu.Unlock()

	// the render goroutine may finish before Start returns
	if err := unit.Start(); err != nil {
		s.mu.Lock()
		s.running = false
		s.state = StateStopped
		s.reason = err
		s.cond.Broadcast()
		s.mu.Unlock()
		return err
	}

	log.Printf("Session %s: playback started", s.id)
	return nil
}

// Wait blocks until playback ends or ctx is done.
// It returns ctx.Err() on cancellation, otherwise Err().
func (s *Session) Wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.running {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
	return failure(s.reason)
}

// Stop ends playback. Stopping a session that is not running does nothing.
func (s *Session) Stop() error {
	s.finish(nil)
	return nil
}

// finish ends the current run once: it clears the running flag under the
// mutex, stops the unit and then wakes the waiter.
func (s *Session) finish(reason error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.reason = reason
	s.state = StateStopped
	unit := s.unit
	s.mu.Unlock()

	if err := unit.Stop(); err != nil {
		log.Printf("Session %s: stop failed: %v", s.id, err)
	}

	if err := failure(reason); err != nil {
		log.Printf("Session %s: playback ended: %v", s.id, err)
	} else {
		log.Printf("Session %s: playback finished", s.id)
	}

	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}

// unitStopped is the unit's stop handler; it covers stops the bridge makes on its own
func (s *Session) unitStopped(reason error) {
	s.finish(reason)
}

// Close stops playback, uninitializes and disposes the unit, and closes the source.
// It runs once; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.finish(nil)

		s.mu.Lock()
		unit := s.unit
		source := s.source
		s.state = StateClosed
		s.mu.Unlock()

		var errs []error
		if unit != nil {
			errs = append(errs, unit.Dispose())
		}
		if c, ok := source.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
		s.closeErr = errors.Join(errs...)

		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	return s.closeErr
}

// Play runs the whole flow for r: open, configure, start, wait and close
func Play(ctx context.Context, config Config, r io.Reader) error {
	s := NewSession(config)
	defer s.Close()

	if err := s.Open(); err != nil {
		return err
	}
	if err := s.Configure(); err != nil {
		return err
	}
	if err := s.UseReader(r); err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	if err := s.Wait(ctx); err != nil {
		return err
	}
	return s.Close()
}
