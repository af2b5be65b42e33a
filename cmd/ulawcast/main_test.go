// ABOUTME: Tests for the ulawcast command
// ABOUTME: Checks argument handling, exit codes and a clean shutdown
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
)

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no source", nil},
		{"file and tone", []string{"-tone", "440", "song.wav"}},
		{"two files", []string{"a.wav", "b.wav"}},
		{"unknown flag", []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stderr)
			assert.Equal(t, sysexits.Usage, code)
			assert.Contains(t, stderr.String(), "usage: ulawcast")
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-no-mdns", filepath.Join(t.TempDir(), "nope.wav")}, &stderr)

	assert.Equal(t, sysexits.OSFile, code)
	assert.Contains(t, stderr.String(), "cannot open")
}

func TestRunStopsOnCancel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ulawcast.log")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"-no-mdns", "-port", "0", "-name", "test", "-log-file", logPath, "-tone", "440"}, &stderr)
	}()

	select {
	case code := <-done:
		assert.Equal(t, sysexits.OK, code)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after the context ended")
	}

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "Starting ulawcast: test on port 0, streaming 440Hz tone")
	assert.Contains(t, string(logged), "Shutting down gracefully")
}
