// ABOUTME: File playback helper
// ABOUTME: Opens an audio file and plays it in its own format
package playback

import (
	"context"

	"github.com/audiounit-go/caplay/pkg/audio/decode"
	"github.com/audiounit-go/caplay/pkg/audio/output"
)

// PlayFile plays the file at path on the default output of reg
func PlayFile(ctx context.Context, reg *output.Registry, path string) error {
	stream, err := decode.OpenFile(path)
	if err != nil {
		return err
	}
	// Play closes the stream once it is registered; this covers setup failures
	defer stream.Close()

	return Play(ctx, Config{Registry: reg, Format: stream.Format()}, stream)
}
