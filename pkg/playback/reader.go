// ABOUTME: Reader render policy
// ABOUTME: Fills each render buffer from an io.Reader and reports exhaustion
package playback

import (
	"errors"
	"fmt"
	"io"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/output"
	"github.com/audiounit-go/caplay/pkg/audiounit"
)

// ErrReadFailed marks a source read error during playback
var ErrReadFailed = errors.New("source read failed")

// maxEmptyReads is how many (0, nil) reads Fill tolerates in a row
const maxEmptyReads = 100

// Fill reads into buf like io.ReadFull, except that a source returning no
// data and no error maxEmptyReads times in a row fails with io.ErrNoProgress.
// Render goroutines use it so a stuck source cannot spin them forever.
func Fill(r io.Reader, buf []byte) (int, error) {
	var (
		n     int
		err   error
		empty int
	)
	for n < len(buf) && err == nil {
		var m int
		m, err = r.Read(buf[n:])
		n += m
		switch {
		case m > 0:
			empty = 0
		case err == nil:
			empty++
			if empty >= maxEmptyReads {
				err = io.ErrNoProgress
			}
		}
	}

	if n == len(buf) {
		return n, nil
	}
	if n > 0 && err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// ReaderRenderer fills render buffers straight from a reader.
//
// A full read continues playback. A short read is padded with the format's
// silence byte and delivered; the following cycle then reads nothing. A read
// of zero bytes ends playback through done.
type ReaderRenderer struct {
	src     io.Reader
	silence byte
	done    func(reason error)
	ended   bool
}

// NewReaderRenderer creates a renderer for src in format.
// done is called once from the render goroutine when src is exhausted;
// reason is audiounit.ErrSourceExhausted or an error wrapping ErrReadFailed.
func NewReaderRenderer(src io.Reader, format audio.StreamFormat, done func(reason error)) *ReaderRenderer {
	return &ReaderRenderer{
		src:     src,
		silence: format.SilenceByte(),
		done:    done,
	}
}

// Render is an output.RenderFunc
func (r *ReaderRenderer) Render(req *output.RenderRequest) audio.Status {
	if r.ended {
		*req.Flags |= output.ActionOutputIsSilence
		return audio.StatusOK
	}
	if len(req.Buffers) != 1 {
		r.end(fmt.Errorf("%w: reader sources fill one buffer, got %d", audiounit.ErrCallbackProtocol, len(req.Buffers)))
		return audio.StatusInvalidParameter
	}

	buf := req.Buffers[0].Data
	n, err := Fill(r.src, buf)
	if n == len(buf) {
		return audio.StatusOK
	}
	if n > 0 {
		for i := n; i < len(buf); i++ {
			buf[i] = r.silence
		}
		return audio.StatusOK
	}

	*req.Flags |= output.ActionOutputIsSilence
	if err == io.EOF {
		r.end(audiounit.ErrSourceExhausted)
	} else {
		r.end(fmt.Errorf("%w: %w", ErrReadFailed, err))
	}
	return audio.StatusOK
}

func (r *ReaderRenderer) end(reason error) {
	r.ended = true
	if r.done != nil {
		r.done(reason)
	}
}
