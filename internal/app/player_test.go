// ABOUTME: Tests for the auplay player
// ABOUTME: Plays files and a stream on a simulated unit, restarting it per source
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/decode"
	"github.com/audiounit-go/caplay/pkg/audio/output"
	"github.com/audiounit-go/caplay/pkg/audiounit"
	"github.com/audiounit-go/caplay/pkg/playback"
	"github.com/audiounit-go/caplay/pkg/stream"
)

func simulated(config output.SimulatorConfig) (*output.Registry, *output.Simulator) {
	sim := output.NewSimulator(config)
	reg := output.NewRegistry()
	reg.Register(sim.Component(audio.DefaultOutput))
	return reg, sim
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPlayFilesOnOneUnit(t *testing.T) {
	reg, sim := simulated(output.SimulatorConfig{FramesPerCycle: 4})
	var out bytes.Buffer

	p := New(Config{Registry: reg, Manufacturer: "appl", Verbose: true, Out: &out})
	require.NoError(t, p.Open())
	defer p.Close()

	require.NoError(t, p.PlayFile(testCtx(t), writeFile(t, "a.ul", []byte{1, 2, 3})))
	sim.Wait()
	require.NoError(t, p.PlayFile(testCtx(t), writeFile(t, "b.ul", []byte{4, 5})))
	sim.Wait()

	assert.Equal(t, [][]byte{{1, 2, 3, 0xFF, 4, 5, 0xFF, 0xFF}}, sim.Recorded())
	assert.Equal(t, 2, sim.Stats().Starts)
	assert.Equal(t, 1, sim.Stats().Instances)
	assert.Equal(t, 2, p.Played())

	assert.Contains(t, out.String(), "auou/def /appl")
	assert.Contains(t, out.String(), "sampling rate: 8000")
	assert.Contains(t, out.String(), "Setting render callback")
}

func TestOpenUnknownManufacturer(t *testing.T) {
	reg, sim := simulated(output.SimulatorConfig{})

	p := New(Config{Registry: reg, Manufacturer: "zzzz"})
	err := p.Open()

	assert.ErrorIs(t, err, audiounit.ErrDeviceUnavailable)
	assert.Equal(t, 0, sim.Stats().Instances)

	p = New(Config{Registry: reg, Manufacturer: "toolong"})
	assert.Error(t, p.Open())
}

func TestPlayFileMissing(t *testing.T) {
	reg, sim := simulated(output.SimulatorConfig{})

	p := New(Config{Registry: reg})
	require.NoError(t, p.Open())
	defer p.Close()

	err := p.PlayFile(testCtx(t), filepath.Join(t.TempDir(), "nope.wav"))
	assert.ErrorIs(t, err, ErrCannotOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, sim.Stats().Starts)
}

func TestPlayCancelled(t *testing.T) {
	reg, _ := simulated(output.SimulatorConfig{FramesPerCycle: 1, Period: 10 * time.Millisecond})

	p := New(Config{Registry: reg})
	require.NoError(t, p.Open())
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.PlayFile(ctx, writeFile(t, "long.ul", bytes.Repeat([]byte{0x55}, 8000)))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, p.Played())
}

func TestPlayWithoutOpen(t *testing.T) {
	p := New(Config{Registry: output.NewRegistry()})
	assert.Error(t, p.PlayFile(testCtx(t), writeFile(t, "a.ul", []byte{1})))
	assert.NoError(t, p.Close())
}

func TestPlayStream(t *testing.T) {
	data := []byte{10, 20, 30, 40, 50}
	srv := stream.NewServer(stream.ServerConfig{
		Open: func() (decode.Stream, error) {
			return decode.NewRaw(bytes.NewReader(data), audio.MuLaw8k()), nil
		},
		ChunkInterval: time.Millisecond,
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Stop()

	reg, sim := simulated(output.SimulatorConfig{FramesPerCycle: 160, Period: time.Millisecond})
	p := New(Config{
		Registry: reg,
		URL:      "ws" + strings.TrimPrefix(ts.URL, "http") + stream.Path,
		Codec:    stream.CodecULaw,
	})
	require.NoError(t, p.Open())
	defer p.Close()

	require.NoError(t, p.PlayStream(testCtx(t)))
	sim.Wait()

	// One padded 20ms chunk, plus silent cycles while waiting for it.
	// The newest frame is held back by the resampler.
	recorded := sim.Recorded()
	require.Len(t, recorded, 1)
	require.Zero(t, len(recorded[0])%160)
	assert.Equal(t, []byte{10, 20, 30, 40}, withoutSilence(recorded[0]))
	assert.Equal(t, 1, p.Played())
}

// withoutSilence drops mu-law silence bytes
func withoutSilence(b []byte) []byte {
	out := []byte{}
	for _, v := range b {
		if v != 0xFF {
			out = append(out, v)
		}
	}
	return out
}

// gatedStream hands out its first block, then blocks the server until the gate opens
type gatedStream struct {
	first  []byte
	served bool
	paused chan struct{}
	gate   chan struct{}
}

func (g *gatedStream) Read(p []byte) (int, error) {
	if !g.served {
		g.served = true
		return copy(p, g.first), nil
	}
	close(g.paused)
	<-g.gate
	return 0, io.EOF
}

func (g *gatedStream) Format() audio.StreamFormat { return audio.MuLaw8k() }
func (g *gatedStream) Close() error               { return nil }

func TestPlayStreamKeepsRenderingWhileServerStalls(t *testing.T) {
	// One full read block of the transcoder, values never equal to silence
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 100)
	}
	src := &gatedStream{first: data, paused: make(chan struct{}), gate: make(chan struct{})}

	srv := stream.NewServer(stream.ServerConfig{
		Open:          func() (decode.Stream, error) { return src, nil },
		ChunkInterval: time.Millisecond,
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Stop()

	reg, sim := simulated(output.SimulatorConfig{FramesPerCycle: 160, Period: time.Millisecond})
	p := New(Config{
		Registry: reg,
		URL:      "ws" + strings.TrimPrefix(ts.URL, "http") + stream.Path,
		Codec:    stream.CodecULaw,
	})
	require.NoError(t, p.Open())
	defer p.Close()

	ctx := testCtx(t)
	done := make(chan error, 1)
	go func() {
		done <- p.PlayStream(ctx)
	}()

	select {
	case <-src.paused:
	case <-time.After(5 * time.Second):
		t.Fatal("server never reached the stall")
	}

	// The render goroutine keeps cycling on silence while no data arrives
	cycles := sim.Stats().Cycles
	require.Eventually(t, func() bool {
		return sim.Stats().Cycles >= cycles+20
	}, time.Second, time.Millisecond)
	assert.True(t, sim.IsRunning())

	close(src.gate)
	require.NoError(t, <-done)
	sim.Wait()

	recorded := sim.Recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, data[:1023], withoutSilence(recorded[0]))
	assert.Equal(t, 1, p.Played())
}

func TestPlayStreamDroppedConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.UnderlyingConn().Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		payload, _ := json.Marshal(stream.StreamStart{Codec: stream.CodecULaw, SampleRate: 8000, Channels: 1})
		start, _ := json.Marshal(stream.Message{Type: "stream/start", Payload: payload})
		conn.WriteMessage(websocket.TextMessage, start)
		conn.WriteMessage(websocket.BinaryMessage, bytes.Repeat([]byte{0x42}, 160))
	}))
	defer ts.Close()

	reg, sim := simulated(output.SimulatorConfig{FramesPerCycle: 160, Period: time.Millisecond})
	p := New(Config{
		Registry: reg,
		URL:      "ws" + strings.TrimPrefix(ts.URL, "http") + stream.Path,
	})
	require.NoError(t, p.Open())
	defer p.Close()

	err := p.PlayStream(testCtx(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, playback.ErrReadFailed)
	assert.ErrorIs(t, err, stream.ErrStreamInterrupted)
	assert.Equal(t, 0, p.Played())

	sim.Wait()
	recorded := sim.Recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, bytes.Repeat([]byte{0x42}, 160), withoutSilence(recorded[0]))
}

func TestPlayRejectsPlanarBuffers(t *testing.T) {
	reg, sim := simulated(output.SimulatorConfig{FramesPerCycle: 4})

	p := New(Config{Registry: reg})
	require.NoError(t, p.Open())
	defer p.Close()

	planar := audio.LinearPCM(8000, 2, 16, true)
	err := p.play(testCtx(t), "planar", bytes.NewReader(make([]byte, 64)), planar)
	sim.Wait()

	assert.ErrorIs(t, err, audiounit.ErrCallbackProtocol)
	assert.Empty(t, sim.Recorded())
	assert.Equal(t, 0, p.Played())
}
