// ABOUTME: Tests for the caplaymu command
// ABOUTME: Runs the command against a simulated default output
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiounit-go/caplay/internal/sysexits"
	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/output"
)

func simulated(config output.SimulatorConfig) (*output.Registry, *output.Simulator) {
	sim := output.NewSimulator(config)
	reg := output.NewRegistry()
	reg.Register(sim.Component(audio.DefaultOutput))
	return reg, sim
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunMissingArgument(t *testing.T) {
	reg, sim := simulated(output.SimulatorConfig{})
	var stderr bytes.Buffer

	code := run(testCtx(t), nil, &stderr, reg)

	assert.Equal(t, sysexits.Usage, code)
	assert.Contains(t, stderr.String(), "usage: caplaymu")
	assert.Equal(t, 0, sim.Stats().Instances, "no device may be opened")
}

func TestRunMissingFile(t *testing.T) {
	reg, sim := simulated(output.SimulatorConfig{})
	var stderr bytes.Buffer

	code := run(testCtx(t), []string{filepath.Join(t.TempDir(), "nope.ul")}, &stderr, reg)

	assert.Equal(t, sysexits.OSFile, code)
	assert.Contains(t, stderr.String(), "cannot open")
	assert.Equal(t, 0, sim.Stats().Instances, "no device may be opened")
}

func TestRunPlaysFileToCompletion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "three.ul")
	require.NoError(t, os.WriteFile(path, []byte{0x01, 0x02, 0x03}, 0o644))

	reg, sim := simulated(output.SimulatorConfig{FramesPerCycle: 1})
	var stderr bytes.Buffer

	code := run(testCtx(t), []string{path}, &stderr, reg)
	sim.Wait()

	assert.Equal(t, sysexits.OK, code, stderr.String())
	assert.Equal(t, [][]byte{{0x01, 0x02, 0x03}}, sim.Recorded())
	assert.Equal(t, 1, sim.Stats().Starts)
	assert.False(t, sim.IsRunning())
}

func TestRunDeviceFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.ul")
	require.NoError(t, os.WriteFile(path, []byte{0x01}, 0o644))

	reg, _ := simulated(output.SimulatorConfig{InitializeStatus: audio.StatusFailedInitialization})
	var stderr bytes.Buffer

	code := run(testCtx(t), []string{path}, &stderr, reg)

	assert.Equal(t, sysexits.OSErr, code)
	assert.Contains(t, stderr.String(), "-10875")
}

func TestRunNoDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.ul")
	require.NoError(t, os.WriteFile(path, []byte{0x01}, 0o644))

	code := run(testCtx(t), []string{path}, &bytes.Buffer{}, output.NewRegistry())

	assert.Equal(t, sysexits.OSErr, code)
}

func TestRunInterrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.ul")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 8000), 0o644))

	// One frame every 10ms keeps the device busy far longer than the test waits
	reg, _ := simulated(output.SimulatorConfig{FramesPerCycle: 1, Period: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	code := run(ctx, []string{path}, &bytes.Buffer{}, reg)
	assert.Equal(t, sysexits.Interrupted, code)
}
