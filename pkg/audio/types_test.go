// ABOUTME: Tests for audio types
// ABOUTME: Tests stream format geometry, FourCC parsing and sample conversion
package audio

import (
	"errors"
	"testing"
)

func TestMuLaw8k(t *testing.T) {
	f := MuLaw8k()

	if f.SampleRate != 8000 {
		t.Errorf("expected 8000Hz, got %g", f.SampleRate)
	}
	if f.FormatID != FormatULaw {
		t.Errorf("expected ulaw, got %s", f.FormatID)
	}
	if !f.NonInterleaved() {
		t.Error("expected non-interleaved flag")
	}
	if f.BytesPerPacket != 1 || f.BytesPerFrame != 1 || f.FramesPerPacket != 1 {
		t.Errorf("unexpected packet geometry: %+v", f)
	}
	if f.ChannelsPerFrame != 1 || f.BitsPerChannel != 8 {
		t.Errorf("expected mono 8-bit, got %dch %dbit", f.ChannelsPerFrame, f.BitsPerChannel)
	}
	if f.BufferCount() != 1 {
		t.Errorf("expected 1 buffer, got %d", f.BufferCount())
	}
	if f.SilenceByte() != 0xFF {
		t.Errorf("expected mu-law silence 0xFF, got 0x%02x", f.SilenceByte())
	}
	if got := f.String(); got != "8000Hz ulaw 1ch 8bit non-interleaved" {
		t.Errorf("unexpected String(): %q", got)
	}
}

func TestLinearPCMGeometry(t *testing.T) {
	tests := []struct {
		name        string
		format      StreamFormat
		bufferCount int
		bytesFor10  int
		silence     byte
	}{
		{"16-bit stereo interleaved", LinearPCM(44100, 2, 16, false), 1, 40, 0},
		{"16-bit stereo non-interleaved", LinearPCM(44100, 2, 16, true), 2, 20, 0},
		{"24-bit mono", LinearPCM(48000, 1, 24, false), 1, 30, 0},
		{"8-bit unsigned", StreamFormat{FormatID: FormatLinearPCM, BitsPerChannel: 8, BytesPerFrame: 1, ChannelsPerFrame: 1}, 1, 10, 0x80},
		{"a-law", StreamFormat{FormatID: FormatALaw, BitsPerChannel: 8, BytesPerFrame: 1, ChannelsPerFrame: 1}, 1, 10, 0xD5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.BufferCount(); got != tt.bufferCount {
				t.Errorf("expected %d buffers, got %d", tt.bufferCount, got)
			}
			if got := tt.format.BytesForFrames(10); got != tt.bytesFor10 {
				t.Errorf("expected %d bytes for 10 frames, got %d", tt.bytesFor10, got)
			}
			if got := tt.format.SilenceByte(); got != tt.silence {
				t.Errorf("expected silence 0x%02x, got 0x%02x", tt.silence, got)
			}
		})
	}
}

func TestParseFourCC(t *testing.T) {
	tests := []struct {
		input    string
		expected FourCC
		wantErr  bool
	}{
		{"", 0, false},
		{"appl", ManufacturerApple, false},
		{"auou", TypeOutput, false},
		{"def ", SubTypeDefaultOutput, false},
		{"toolong", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseFourCC(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFourCC(%q): unexpected error state: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseFourCC(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestFourCCString(t *testing.T) {
	if s := FormatULaw.String(); s != "ulaw" {
		t.Errorf("expected ulaw, got %q", s)
	}
	if s := FourCC(1).String(); s != "0x00000001" {
		t.Errorf("expected hex for unprintable code, got %q", s)
	}
}

func TestComponentDescriptionMatches(t *testing.T) {
	if !DefaultOutput.Matches(ComponentDescription{Type: TypeOutput}) {
		t.Error("wildcard subtype/manufacturer should match")
	}
	if DefaultOutput.Matches(GenericOutput) {
		t.Error("default output should not match generic output query")
	}
	if !GenericOutput.Matches(ComponentDescription{}) {
		t.Error("empty query should match everything")
	}
}

func TestStatusString(t *testing.T) {
	if s := StatusFormatNotSupported.String(); s != "-10868 (format not supported)" {
		t.Errorf("unexpected status string %q", s)
	}
	fmtErr := Status('f'<<24 | 'm'<<16 | 't'<<8 | '?')
	if s := fmtErr.String(); s != "'fmt?'" {
		t.Errorf("expected four character status, got %q", s)
	}

	var err error = StatusUninitialized
	var status Status
	if !errors.As(err, &status) || status != StatusUninitialized {
		t.Error("Status should be usable as an error")
	}
}

func TestULawRoundTrip(t *testing.T) {
	if got := ULawToLinear(0xFF); got != 0 {
		t.Errorf("0xFF should decode to 0, got %d", got)
	}
	if got := ULawToLinear(0x00); got != -32124 {
		t.Errorf("0x00 should decode to -32124, got %d", got)
	}
	if got := ULawToLinear(0x80); got != 32124 {
		t.Errorf("0x80 should decode to 32124, got %d", got)
	}
	if got := LinearToULaw(0); got != 0xFF {
		t.Errorf("0 should encode to 0xFF, got 0x%02x", got)
	}

	// Every code except negative zero survives expand + compress
	for i := 0; i < 256; i++ {
		code := byte(i)
		if code == 0x7F {
			continue
		}
		if got := LinearToULaw(ULawToLinear(code)); got != code {
			t.Errorf("round-trip failed for 0x%02x: got 0x%02x", code, got)
		}
	}
}

func TestALawToLinear(t *testing.T) {
	if got := ALawToLinear(0xD5); got != 8 {
		t.Errorf("0xD5 should decode to 8, got %d", got)
	}
	if got := ALawToLinear(0x55); got != -8 {
		t.Errorf("0x55 should decode to -8, got %d", got)
	}
	if got := ALawToLinear(0xAA); got != 32256 {
		t.Errorf("0xAA should decode to 32256, got %d", got)
	}
}

func TestSampleConversions(t *testing.T) {
	samples := []int16{0, 100, -100, 1000, -1000, 32767, -32768}
	for _, original := range samples {
		if result := SampleToInt16(SampleFromInt16(original)); result != original {
			t.Errorf("16-bit round-trip failed: %d -> %d", original, result)
		}
	}

	tests := []struct {
		name  string
		input [3]byte
		value int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleFrom24Bit(tt.input); got != tt.value {
				t.Errorf("expected %d, got %d", tt.value, got)
			}
			if got := SampleTo24Bit(tt.value); got != tt.input {
				t.Errorf("expected %v, got %v", tt.input, got)
			}
		})
	}
}
