// ABOUTME: Stream protocol message definitions
// ABOUTME: JSON handshake messages exchanged before binary audio chunks
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// Codec names
const (
	CodecULaw = "ulaw"
	CodecOpus = "opus"
)

// Path is the WebSocket endpoint served by Server
const Path = "/caplay"

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string   `json:"client_id"`
	Name     string   `json:"name"`
	Codecs   []string `json:"codecs"`
}

// StreamStart describes the audio that follows
type StreamStart struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Title      string `json:"title,omitempty"`
}

// Format returns the byte format a Source produces for this stream.
// Opus packets are decoded to 16-bit PCM.
func (s StreamStart) Format() (audio.StreamFormat, error) {
	switch s.Codec {
	case CodecULaw:
		if s.SampleRate != 8000 || s.Channels != 1 {
			return audio.StreamFormat{}, fmt.Errorf("unsupported ulaw stream: %dHz %dch", s.SampleRate, s.Channels)
		}
		return audio.MuLaw8k(), nil
	case CodecOpus:
		if s.Channels < 1 || s.Channels > 2 {
			return audio.StreamFormat{}, fmt.Errorf("unsupported opus channel count: %d", s.Channels)
		}
		return audio.LinearPCM(s.SampleRate, s.Channels, 16, false), nil
	default:
		return audio.StreamFormat{}, fmt.Errorf("unsupported codec: %s", s.Codec)
	}
}

func encodeMessage(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Payload: raw})
}

func decodeMessage(data []byte, msgType string, payload any) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type != msgType {
		return fmt.Errorf("expected %s, got %s", msgType, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		return fmt.Errorf("failed to parse %s: %w", msgType, err)
	}
	return nil
}
