// ABOUTME: WebSocket stream server
// ABOUTME: Serves an audio source to each connecting client in its preferred codec
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/audiounit-go/caplay/pkg/audio/decode"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port  int
	Name  string
	Title string
	// Open returns a fresh source for each client
	Open func() (decode.Stream, error)
	// Codecs the server offers, in order of preference (default ulaw, opus)
	Codecs []string
	// ChunkInterval paces binary messages (default 20ms, real time)
	ChunkInterval time.Duration
	Debug         bool
	// OnClient, if set, is told about every client as it starts, progresses
	// and ends. It runs on connection goroutines and must not block.
	OnClient func(ClientEvent)
}

// ClientState is where a client is in its stream
type ClientState string

// Client states reported through ServerConfig.OnClient
const (
	ClientStreaming ClientState = "streaming"
	ClientFinished  ClientState = "finished"
	ClientGone      ClientState = "disconnected"
)

// ClientEvent describes one client connection
type ClientEvent struct {
	ID    string
	Name  string
	Codec string
	State ClientState
	// Position is the amount of audio sent so far
	Position time.Duration
}

// progressEvery is how many chunks pass between streaming events
const progressEvery = 1000 / ChunkDurationMs

// Server streams audio to WebSocket clients
type Server struct {
	config   ServerConfig
	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates a new server instance
func NewServer(config ServerConfig) *Server {
	if len(config.Codecs) == 0 {
		config.Codecs = []string{CodecULaw, CodecOpus}
	}
	if config.ChunkInterval <= 0 {
		config.ChunkInterval = ChunkDurationMs * time.Millisecond
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network streaming only; browsers are not the target client
				origin := r.Header.Get("Origin")
				if origin != "" {
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the stream endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Stream server %q listening on %s%s", s.config.Name, addr, Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case serverErr = <-errChan:
		log.Printf("HTTP server error: %v", serverErr)
		s.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop ends every stream and makes Start return
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.stopChan:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

// handleConnection runs the handshake and streams until the source ends
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	var hello ClientHello
	if err := decodeMessage(data, "client/hello", &hello); err != nil {
		log.Printf("Bad handshake: %v", err)
		return
	}

	codec, ok := s.negotiateCodec(hello.Codecs)
	if !ok {
		log.Printf("No common codec with %s (offered %v)", hello.Name, hello.Codecs)
		s.closeWith(conn, websocket.CloseUnsupportedData, "no common codec")
		return
	}

	src, err := s.config.Open()
	if err != nil {
		log.Printf("Failed to open source: %v", err)
		s.closeWith(conn, websocket.CloseInternalServerErr, "source unavailable")
		return
	}
	defer src.Close()

	tc, err := NewTranscoder(src, codec)
	if err != nil {
		log.Printf("Failed to create transcoder: %v", err)
		s.closeWith(conn, websocket.CloseInternalServerErr, "unsupported source")
		return
	}

	start := tc.Start()
	start.Title = s.config.Title
	msg, err := encodeMessage("stream/start", start)
	if err != nil {
		log.Printf("Error encoding stream/start: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Printf("Error sending stream/start: %v", err)
		return
	}

	log.Printf("Streaming to %s (%s) as %s", hello.Name, hello.ClientID, codec)

	chunks := 0
	state := ClientGone
	s.report(hello, codec, ClientStreaming, 0)
	defer func() {
		s.report(hello, codec, state, chunks)
	}()

	// The client only sends control frames; reading surfaces its close
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.config.ChunkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			s.closeWith(conn, websocket.CloseGoingAway, "server stopping")
			return
		case <-gone:
			log.Printf("Client %s disconnected after %d chunks", hello.Name, chunks)
			return
		case <-ticker.C:
		}

		chunk, err := tc.Next()
		if errors.Is(err, io.EOF) {
			log.Printf("Stream to %s finished after %d chunks", hello.Name, chunks)
			state = ClientFinished
			s.closeWith(conn, websocket.CloseNormalClosure, "")
			// Let the client's close reply arrive before dropping the connection
			select {
			case <-gone:
			case <-time.After(time.Second):
			}
			return
		}
		if err != nil {
			log.Printf("Transcode error: %v", err)
			s.closeWith(conn, websocket.CloseInternalServerErr, "transcode failed")
			return
		}

		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			log.Printf("Error writing chunk: %v", err)
			return
		}
		chunks++
		if chunks%progressEvery == 0 {
			s.report(hello, codec, ClientStreaming, chunks)
			if s.config.Debug {
				log.Printf("[DEBUG] Sent %d chunks to %s", chunks, hello.Name)
			}
		}
	}
}

func (s *Server) report(hello ClientHello, codec string, state ClientState, chunks int) {
	if s.config.OnClient == nil {
		return
	}
	s.config.OnClient(ClientEvent{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Codec:    codec,
		State:    state,
		Position: time.Duration(chunks) * ChunkDurationMs * time.Millisecond,
	})
}

// negotiateCodec picks the first client codec the server offers
func (s *Server) negotiateCodec(clientCodecs []string) (string, bool) {
	for _, c := range clientCodecs {
		if slices.Contains(s.config.Codecs, c) {
			return c, true
		}
	}
	return "", false
}

func (s *Server) closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil && s.config.Debug {
		log.Printf("[DEBUG] Close frame not sent: %v", err)
	}
}
