// ABOUTME: Tests for the component registry and format validation
// ABOUTME: Verifies wildcard lookup order and built-in registrations
package output

import (
	"errors"
	"testing"

	"github.com/audiounit-go/caplay/pkg/audio"
)

func TestRegistryFindNext(t *testing.T) {
	reg := NewRegistry()
	first := &Component{Desc: audio.DefaultOutput, Name: "first"}
	second := &Component{Desc: audio.GenericOutput, Name: "second"}
	third := &Component{Desc: audio.DefaultOutput, Name: "third"}
	reg.Register(first)
	reg.Register(second)
	reg.Register(third)

	if c := reg.FindNext(nil, audio.DefaultOutput); c != first {
		t.Errorf("expected first component, got %v", c)
	}
	if c := reg.FindNext(first, audio.DefaultOutput); c != third {
		t.Errorf("expected third component after first, got %v", c)
	}
	if c := reg.FindNext(third, audio.DefaultOutput); c != nil {
		t.Errorf("expected no component after third, got %v", c)
	}

	wildcard := audio.ComponentDescription{Type: audio.TypeOutput}
	if c := reg.FindNext(first, wildcard); c != second {
		t.Errorf("wildcard query should find second, got %v", c)
	}

	unregistered := &Component{Desc: audio.DefaultOutput}
	if c := reg.FindNext(unregistered, audio.DefaultOutput); c != nil {
		t.Errorf("unknown prev should end the search, got %v", c)
	}
}

func TestDefaultRegistryBuiltins(t *testing.T) {
	if c := DefaultRegistry.FindNext(nil, audio.DefaultOutput); c == nil || c.Name != "oto default output" {
		t.Errorf("default output should be oto, got %v", c)
	}

	miniaudio := audio.ComponentDescription{Type: audio.TypeOutput, Manufacturer: ManufacturerMiniaudio}
	if c := DefaultRegistry.FindNext(nil, miniaudio); c == nil {
		t.Error("miniaudio backend not registered")
	}

	c := DefaultRegistry.FindNext(nil, audio.GenericOutput)
	if c == nil {
		t.Fatal("generic output not registered")
	}
	dev, err := c.New()
	if err != nil {
		t.Fatalf("failed to create generic output: %v", err)
	}
	if _, ok := dev.(*Simulator); !ok {
		t.Errorf("generic output should be a simulator, got %T", dev)
	}
	if dev.Description() != audio.GenericOutput {
		t.Errorf("unexpected description %s", dev.Description())
	}
}

func TestValidateFormat(t *testing.T) {
	float32Stereo := audio.LinearPCM(48000, 2, 32, false)
	float32Stereo.FormatFlags = audio.FlagIsFloat | audio.FlagIsPacked

	badGeometry := audio.LinearPCM(44100, 2, 16, false)
	badGeometry.BytesPerFrame = 2

	tests := []struct {
		name   string
		format audio.StreamFormat
		ok     bool
	}{
		{"mu-law 8k", audio.MuLaw8k(), true},
		{"16-bit stereo", audio.LinearPCM(44100, 2, 16, false), true},
		{"24-bit non-interleaved", audio.LinearPCM(96000, 2, 24, true), true},
		{"float32 stereo", float32Stereo, true},
		{"zero rate", audio.LinearPCM(0, 2, 16, false), false},
		{"12-bit", audio.LinearPCM(44100, 2, 12, false), false},
		{"frame size mismatch", badGeometry, false},
		{"unknown format", audio.StreamFormat{SampleRate: 8000, FormatID: 0x61616320, BytesPerFrame: 1, ChannelsPerFrame: 1, BitsPerChannel: 8}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.format)
			if tt.ok && err != nil {
				t.Errorf("expected format to be accepted, got %v", err)
			}
			if !tt.ok && !errors.Is(err, audio.StatusFormatNotSupported) {
				t.Errorf("expected StatusFormatNotSupported, got %v", err)
			}
		})
	}
}
