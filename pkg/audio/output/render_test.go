// ABOUTME: Tests for the render converter used by hardware backends
// ABOUTME: Verifies request shape, interleaving and failure silence
package output

import (
	"encoding/binary"
	"testing"

	"github.com/audiounit-go/caplay/pkg/audio"
)

func TestConverterMuLawToS16(t *testing.T) {
	conv, err := newConverter(audio.MuLaw8k(), 16)
	if err != nil {
		t.Fatalf("newConverter failed: %v", err)
	}

	var seen *RenderRequest
	fn := func(req *RenderRequest) audio.Status {
		seen = req
		copy(req.Buffers[0].Data, []byte{0xFF, 0x00, 0x80, 0xFF})
		return audio.StatusOK
	}

	out := make([]byte, 8)
	if status := conv.render(fn, out, 4); status != audio.StatusOK {
		t.Fatalf("render failed: %v", status)
	}

	if seen.Frames != 4 || len(seen.Buffers) != 1 || len(seen.Buffers[0].Data) != 4 {
		t.Errorf("unexpected request shape: frames=%d buffers=%d", seen.Frames, len(seen.Buffers))
	}
	if seen.TimeStamp.Flags&TimeStampSampleTimeValid == 0 {
		t.Error("sample time should be valid")
	}

	want := []int16{0, -32124, 32124, 0}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(out[i*2:])); got != w {
			t.Errorf("sample %d: got %d, want %d", i, got, w)
		}
	}

	// Sample time advances by the frames of each cycle
	conv.render(fn, out, 4)
	if seen.TimeStamp.SampleTime != 4 {
		t.Errorf("expected sample time 4, got %g", seen.TimeStamp.SampleTime)
	}
}

func TestConverterNonInterleavedStereo(t *testing.T) {
	conv, err := newConverter(audio.LinearPCM(44100, 2, 16, true), 16)
	if err != nil {
		t.Fatalf("newConverter failed: %v", err)
	}

	fn := func(req *RenderRequest) audio.Status {
		if len(req.Buffers) != 2 {
			t.Fatalf("expected 2 buffers, got %d", len(req.Buffers))
		}
		for _, b := range req.Buffers {
			if b.NumberChannels != 1 {
				t.Errorf("expected mono buffers, got %d channels", b.NumberChannels)
			}
		}
		binary.LittleEndian.PutUint16(req.Buffers[0].Data[0:], uint16(100))
		binary.LittleEndian.PutUint16(req.Buffers[0].Data[2:], uint16(200))
		binary.LittleEndian.PutUint16(req.Buffers[1].Data[0:], uint16(300))
		binary.LittleEndian.PutUint16(req.Buffers[1].Data[2:], uint16(400))
		return audio.StatusOK
	}

	out := make([]byte, 8)
	conv.render(fn, out, 2)

	want := []int16{100, 300, 200, 400}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(out[i*2:])); got != w {
			t.Errorf("sample %d: got %d, want %d", i, got, w)
		}
	}
}

func TestConverterFailedCycleIsSilent(t *testing.T) {
	conv, err := newConverter(audio.MuLaw8k(), 16)
	if err != nil {
		t.Fatalf("newConverter failed: %v", err)
	}

	out := []byte{1, 2, 3, 4}
	status := conv.render(func(req *RenderRequest) audio.Status {
		return audio.StatusInvalidParameter
	}, out, 2)

	if status != audio.StatusInvalidParameter {
		t.Errorf("expected failure status, got %v", status)
	}
	for i, b := range out {
		if b != 0 {
			t.Errorf("byte %d not silenced: %d", i, b)
		}
	}

	out = []byte{1, 2, 3, 4}
	if status := conv.render(nil, out, 2); status != audio.StatusNoConnection {
		t.Errorf("expected no connection without a render function, got %v", status)
	}
}
