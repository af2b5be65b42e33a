// ABOUTME: WebSocket client source for network streams
// ABOUTME: Performs the handshake and feeds received audio into a ring buffer
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/audiounit-go/caplay/pkg/audio"
)

// ErrStreamInterrupted is returned by Source reads after the connection
// broke without a normal close from the server
var ErrStreamInterrupted = errors.New("stream interrupted")

// ClientConfig holds client configuration
type ClientConfig struct {
	// URL of the stream endpoint, e.g. ws://host:8930/caplay
	URL string
	// Name sent in client/hello
	Name string
	// Codecs in order of preference; empty accepts ulaw and opus
	Codecs []string
	// BufferMs is the ring buffer size in milliseconds of audio (default 500)
	BufferMs int
	// HandshakeTimeout bounds the wait for stream/start (default 5s)
	HandshakeTimeout time.Duration
}

// Source is a network stream readable as raw audio bytes
type Source struct {
	conn   *websocket.Conn
	start  StreamStart
	format audio.StreamFormat
	ring   *RingBuffer
	opus   *OpusDecoder

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a stream server and completes the handshake
func Dial(ctx context.Context, config ClientConfig) (*Source, error) {
	if len(config.Codecs) == 0 {
		config.Codecs = []string{CodecULaw, CodecOpus}
	}
	if config.BufferMs <= 0 {
		config.BufferMs = 500
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 5 * time.Second
	}

	log.Printf("Connecting to %s", config.URL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	start, err := handshake(conn, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	format, err := start.Format()
	if err != nil {
		conn.Close()
		return nil, err
	}

	s := &Source{
		conn:   conn,
		start:  start,
		format: format,
		done:   make(chan struct{}),
	}

	if start.Codec == CodecOpus {
		s.opus, err = NewOpusDecoder(start.SampleRate, start.Channels)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	bytesPerSecond := int(format.SampleRate) * int(format.BytesPerFrame)
	s.ring = NewRingBuffer(bytesPerSecond * config.BufferMs / 1000)
	s.ring.SetAlignment(int(format.BytesPerFrame))

	log.Printf("Stream started: %s %s", start.Codec, format)

	go s.readMessages()
	return s, nil
}

// handshake sends client/hello and waits for stream/start
func handshake(conn *websocket.Conn, config ClientConfig) (StreamStart, error) {
	hello, err := encodeMessage("client/hello", ClientHello{
		ClientID: uuid.NewString(),
		Name:     config.Name,
		Codecs:   config.Codecs,
	})
	if err != nil {
		return StreamStart{}, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return StreamStart{}, fmt.Errorf("failed to send client/hello: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(config.HandshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return StreamStart{}, fmt.Errorf("failed to read stream/start: %w", err)
	}
	conn.SetReadDeadline(time.Time{}) // Clear deadline

	var start StreamStart
	if err := decodeMessage(data, "stream/start", &start); err != nil {
		return StreamStart{}, err
	}
	return start, nil
}

// readMessages moves audio from the connection into the ring buffer
func (s *Source) readMessages() {
	defer close(s.done)
	defer s.ring.Close()

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Stream ended by server")
				s.ring.Close()
			} else {
				log.Printf("Read error: %v", err)
				s.ring.CloseWithError(fmt.Errorf("%w: %w", ErrStreamInterrupted, err))
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		if s.opus != nil {
			data, err = s.opus.Decode(data)
			if err != nil {
				log.Printf("Dropping packet: %v", err)
				continue
			}
		}

		if _, err := s.ring.Write(data); err != nil {
			return
		}
	}
}

// Format returns the format of the bytes Read produces
func (s *Source) Format() audio.StreamFormat {
	return s.format
}

// Info returns the stream/start message the server sent
func (s *Source) Info() StreamStart {
	return s.start
}

// Read returns buffered audio, blocking until some arrives. Once the buffer
// is drained it returns io.EOF after a normal close and an error wrapping
// ErrStreamInterrupted when the connection broke.
func (s *Source) Read(p []byte) (int, error) {
	return s.ring.Read(p)
}

// ReadAvailable returns whole frames of buffered audio without waiting.
// Zero bytes with a nil error means nothing has arrived yet.
func (s *Source) ReadAvailable(p []byte) (int, error) {
	return s.ring.ReadAvailable(p)
}

// Close disconnects and ends the stream
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.ring.Close()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = s.conn.Close()
		<-s.done
	})
	return err
}

var _ io.ReadCloser = (*Source)(nil)
