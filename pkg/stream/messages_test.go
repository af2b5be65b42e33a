// ABOUTME: Tests for stream protocol messages
// ABOUTME: Covers stream/start format mapping and message envelope checks
package stream

import (
	"testing"

	"github.com/audiounit-go/caplay/pkg/audio"
)

func TestStreamStartFormat(t *testing.T) {
	tests := []struct {
		name    string
		start   StreamStart
		want    audio.StreamFormat
		wantErr bool
	}{
		{"ulaw", StreamStart{Codec: CodecULaw, SampleRate: 8000, Channels: 1}, audio.MuLaw8k(), false},
		{"ulaw wrong rate", StreamStart{Codec: CodecULaw, SampleRate: 16000, Channels: 1}, audio.StreamFormat{}, true},
		{"opus stereo", StreamStart{Codec: CodecOpus, SampleRate: 48000, Channels: 2}, audio.LinearPCM(48000, 2, 16, false), false},
		{"opus surround", StreamStart{Codec: CodecOpus, SampleRate: 48000, Channels: 6}, audio.StreamFormat{}, true},
		{"unknown codec", StreamStart{Codec: "flac", SampleRate: 44100, Channels: 2}, audio.StreamFormat{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.start.Format()
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDecodeMessageChecksType(t *testing.T) {
	data, err := encodeMessage("client/hello", ClientHello{ClientID: "abc", Name: "test", Codecs: []string{CodecULaw}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var hello ClientHello
	if err := decodeMessage(data, "client/hello", &hello); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if hello.Name != "test" || len(hello.Codecs) != 1 || hello.Codecs[0] != CodecULaw {
		t.Errorf("unexpected hello: %+v", hello)
	}

	var start StreamStart
	if err := decodeMessage(data, "stream/start", &start); err == nil {
		t.Error("expected error for mismatched message type")
	}
	if err := decodeMessage([]byte("not json"), "client/hello", &hello); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
