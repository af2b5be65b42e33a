// ABOUTME: Tests for file stream readers
// ABOUTME: Tests raw mu-law and WAV header handling through OpenFile
package decode

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// buildWAV assembles a minimal RIFF/WAVE file with a 16 byte fmt chunk
func buildWAV(tag uint16, channels uint16, sampleRate uint32, bits uint16, data []byte) []byte {
	var buf bytes.Buffer
	blockAlign := channels * bits / 8

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+16+8+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, tag)
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, sampleRate*uint32(blockAlign))
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, bits)

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestOpenFileRawULaw(t *testing.T) {
	path := writeTemp(t, "hello.ul", []byte{0x01, 0x02, 0x03})

	stream, err := OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer stream.Close()

	if stream.Format() != audio.MuLaw8k() {
		t.Errorf("expected mu-law 8k format, got %s", stream.Format())
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(data, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("unexpected data %v", data)
	}
}

func TestOpenFileWAV16(t *testing.T) {
	pcm := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	path := writeTemp(t, "tone.wav", buildWAV(wavFormatPCM, 2, 44100, 16, pcm))

	stream, err := OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer stream.Close()

	format := stream.Format()
	if format.FormatID != audio.FormatLinearPCM {
		t.Errorf("expected lpcm, got %s", format.FormatID)
	}
	if format.SampleRate != 44100 || format.ChannelsPerFrame != 2 || format.BitsPerChannel != 16 {
		t.Errorf("unexpected format %s", format)
	}
	if format.BytesPerFrame != 4 {
		t.Errorf("expected 4 bytes per frame, got %d", format.BytesPerFrame)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(data, pcm) {
		t.Errorf("expected data chunk %v, got %v", pcm, data)
	}
}

func TestOpenFileWAVMuLaw(t *testing.T) {
	path := writeTemp(t, "phone.wav", buildWAV(wavFormatMuLaw, 1, 8000, 8, []byte{0xFF, 0x7F}))

	stream, err := OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer stream.Close()

	format := stream.Format()
	if format.FormatID != audio.FormatULaw || format.SampleRate != 8000 {
		t.Errorf("expected 8kHz mu-law, got %s", format)
	}
	if _, err := NewPCM(format); err != nil {
		t.Errorf("WAV mu-law format should be decodable: %v", err)
	}
}

func TestWAVStreamFormat8BitIsUnsigned(t *testing.T) {
	format, err := wavStreamFormat(wavFormatPCM, 8000, 1, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format.FormatFlags&audio.FlagIsSignedInteger != 0 {
		t.Error("8-bit WAV PCM should be unsigned")
	}
	if format.SilenceByte() != 0x80 {
		t.Errorf("expected silence 0x80, got 0x%02x", format.SilenceByte())
	}

	if _, err := wavStreamFormat(2, 8000, 1, 4); err == nil {
		t.Error("expected ADPCM tag to be rejected")
	}
}

func TestOpenFileErrors(t *testing.T) {
	if _, err := OpenFile(filepath.Join(t.TempDir(), "missing.ul")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	path := writeTemp(t, "notes.txt", []byte("hello"))
	if _, err := OpenFile(path); err == nil {
		t.Error("expected unsupported extension error")
	}

	path = writeTemp(t, "broken.wav", []byte("not a wav file at all"))
	if _, err := OpenFile(path); err == nil {
		t.Error("expected invalid WAV error")
	}
}
