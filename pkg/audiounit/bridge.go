// ABOUTME: Render callback bridge between devices and application code
// ABOUTME: Serializes callback execution, validates returned buffers and stops on violations
package audiounit

import (
	"errors"
	"fmt"
	"log"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/output"
)

// RenderArgs is what a RenderCallback sees for one cycle
type RenderArgs struct {
	Flags         output.ActionFlags
	TimeStamp     output.TimeStamp
	Bus           uint32
	Frames        uint32
	NumberBuffers int
	// BufferSize is the byte capacity every returned buffer must have
	BufferSize int
	UserData   any
}

// RenderCallback supplies one cycle of audio as a RenderResult
type RenderCallback func(args RenderArgs) RenderResult

type resultKind int

const (
	resultContinue resultKind = iota
	resultNoData
	resultFail
)

// RenderResult is the outcome of a RenderCallback
type RenderResult struct {
	kind     resultKind
	buffers  [][]byte
	flags    output.ActionFlags
	setFlags bool
	err      error
}

// Continue delivers one byte slice per destination buffer
func Continue(bufs ...[]byte) RenderResult {
	return RenderResult{kind: resultContinue, buffers: bufs}
}

// ContinueWithFlags delivers buffers and replaces the cycle's action flags
func ContinueWithFlags(flags output.ActionFlags, bufs ...[]byte) RenderResult {
	return RenderResult{kind: resultContinue, buffers: bufs, flags: flags, setFlags: true}
}

// NoData reports that the source is exhausted; the unit stops
func NoData() RenderResult {
	return RenderResult{kind: resultNoData}
}

// Fail reports a callback error; the unit stops
func Fail(err error) RenderResult {
	if err == nil {
		err = errors.New("render callback failed")
	}
	return RenderResult{kind: resultFail, err: err}
}

type binding struct {
	direct   output.RenderFunc
	callback RenderCallback
	userData any
}

// render is installed as the device's render function
func (u *AudioUnit) render(req *output.RenderRequest) audio.Status {
	b := u.binding.Load()
	if b == nil {
		return audio.StatusNoConnection
	}
	if b.direct != nil {
		return b.direct(req)
	}
	return u.dispatch(b, req)
}

func (u *AudioUnit) dispatch(b *binding, req *output.RenderRequest) audio.Status {
	args := RenderArgs{
		Flags:         *req.Flags,
		TimeStamp:     req.TimeStamp,
		Bus:           req.Bus,
		Frames:        req.Frames,
		NumberBuffers: len(req.Buffers),
		UserData:      b.userData,
	}
	if len(req.Buffers) > 0 {
		args.BufferSize = len(req.Buffers[0].Data)
	}

	result := u.invoke(b.callback, args)

	switch result.kind {
	case resultNoData:
		*req.Flags |= output.ActionOutputIsSilence
		u.halt(ErrSourceExhausted)
		return audio.StatusOK
	case resultFail:
		log.Printf("Render callback failed: %v", result.err)
		u.setRenderErr(result.err)
		u.halt(result.err)
		return failureStatus(result.err)
	}

	if err := checkBuffers(result.buffers, req.Buffers); err != nil {
		if errors.Is(err, ErrSourceExhausted) {
			*req.Flags |= output.ActionOutputIsSilence
			u.halt(ErrSourceExhausted)
			return audio.StatusOK
		}
		log.Printf("Render callback protocol violation: %v", err)
		u.setRenderErr(err)
		u.halt(err)
		return audio.StatusInvalidParameter
	}

	for i, b := range result.buffers {
		copy(req.Buffers[i].Data, b)
	}
	if result.setFlags {
		*req.Flags = result.flags
	}
	return audio.StatusOK
}

// invoke runs cb under the execution lock and turns a panic into Fail
func (u *AudioUnit) invoke(cb RenderCallback, args RenderArgs) (result RenderResult) {
	u.execMu.Lock()
	defer u.execMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			result = Fail(fmt.Errorf("render callback panicked: %v", r))
		}
	}()

	return cb(args)
}

// checkBuffers validates every returned buffer before anything is copied.
// An empty buffer anywhere means the source has nothing more to give.
func checkBuffers(got [][]byte, dst []output.Buffer) error {
	for _, b := range got {
		if len(b) == 0 {
			return ErrSourceExhausted
		}
	}
	if len(got) != len(dst) {
		return fmt.Errorf("%w: returned %d buffers, expected %d", ErrCallbackProtocol, len(got), len(dst))
	}
	for i, b := range got {
		if len(b) != len(dst[i].Data) {
			return fmt.Errorf("%w: buffer %d has %d bytes, expected %d", ErrCallbackProtocol, i, len(b), len(dst[i].Data))
		}
	}
	return nil
}

func failureStatus(err error) audio.Status {
	if status := StatusOf(err); status != audio.StatusOK {
		return status
	}
	return audio.StatusInvalidParameter
}
