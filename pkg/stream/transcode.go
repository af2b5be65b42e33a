// ABOUTME: Transcoder turning a decoded file stream into codec chunks
// ABOUTME: Decodes, downmixes, resamples and encodes audio in 20ms pieces
package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/decode"
	"github.com/audiounit-go/caplay/pkg/audio/encode"
	"github.com/audiounit-go/caplay/pkg/audio/resample"
)

const (
	// ChunkDurationMs is the audio carried by one binary message
	ChunkDurationMs = 20

	opusSampleRate = 48000
	readFrames     = 1024
)

// Transcoder produces encoded chunks from a source stream
type Transcoder struct {
	src       decode.Stream
	decoder   *decode.PCMDecoder
	resampler *resample.Resampler
	start     StreamStart

	inChannels  int
	outChannels int
	chunkFrames int
	encode      func([]int32) ([]byte, error)

	raw       []byte
	in        []int32
	mixed     []int32
	resampled []int32
	pending   []int32
	eof       bool
}

// NewTranscoder prepares src for streaming with codec. The returned
// transcoder's Start describes the stream to announce to the client.
func NewTranscoder(src decode.Stream, codec string) (*Transcoder, error) {
	format := src.Format()
	if format.FramesPerPacket > 1 || format.BytesPerFrame == 0 {
		return nil, fmt.Errorf("cannot stream packetized format %s", format)
	}

	decoder, err := decode.NewPCM(format)
	if err != nil {
		return nil, err
	}

	t := &Transcoder{
		src:        src,
		decoder:    decoder,
		inChannels: int(format.ChannelsPerFrame),
	}

	var outRate int
	switch codec {
	case CodecULaw:
		outRate, t.outChannels = 8000, 1
		t.encode = encode.NewULaw().Encode
	case CodecOpus:
		outRate, t.outChannels = opusSampleRate, min(t.inChannels, 2)
		frameSize := opusSampleRate * ChunkDurationMs / 1000
		enc, err := NewOpusEncoder(outRate, t.outChannels, frameSize)
		if err != nil {
			return nil, err
		}
		pcm := make([]int16, frameSize*t.outChannels)
		t.encode = func(samples []int32) ([]byte, error) {
			for i, s := range samples {
				pcm[i] = audio.SampleToInt16(s)
			}
			return enc.Encode(pcm)
		}
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}

	t.start = StreamStart{Codec: codec, SampleRate: outRate, Channels: t.outChannels}
	t.chunkFrames = outRate * ChunkDurationMs / 1000
	t.resampler = resample.New(int(format.SampleRate), outRate, t.outChannels)

	t.raw = make([]byte, readFrames*int(format.BytesPerFrame))
	t.in = make([]int32, readFrames*t.inChannels)
	t.mixed = make([]int32, readFrames*t.outChannels)
	t.resampled = make([]int32, t.resampler.OutputSamplesNeeded(len(t.mixed)))
	return t, nil
}

// Start returns the stream/start payload for this transcoder
func (t *Transcoder) Start() StreamStart {
	return t.start
}

// Next returns one encoded chunk. The final chunk is padded with silence;
// after it Next returns io.EOF.
func (t *Transcoder) Next() ([]byte, error) {
	chunk := t.chunkFrames * t.outChannels
	for len(t.pending) < chunk && !t.eof {
		if err := t.fill(); err != nil {
			return nil, err
		}
	}
	if len(t.pending) == 0 {
		return nil, io.EOF
	}

	for len(t.pending) < chunk {
		t.pending = append(t.pending, 0)
	}

	data, err := t.encode(t.pending[:chunk])
	if err != nil {
		return nil, err
	}
	t.pending = append(t.pending[:0], t.pending[chunk:]...)
	return data, nil
}

// fill reads one block from the source and appends its resampled frames to pending
func (t *Transcoder) fill() error {
	n, err := io.ReadFull(t.src, t.raw)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		t.eof = true
	case err != nil:
		return fmt.Errorf("source read failed: %w", err)
	}

	frames := n / int(t.src.Format().BytesPerFrame)
	if frames == 0 {
		return nil
	}

	t.decoder.DecodeInto(t.in, t.raw[:frames*int(t.src.Format().BytesPerFrame)])
	t.mix(frames)

	out := t.resampler.Resample(t.mixed[:frames*t.outChannels], t.resampled)
	t.pending = append(t.pending, t.resampled[:out]...)
	return nil
}

// mix folds the input channels down to the output channel count
func (t *Transcoder) mix(frames int) {
	in, out := t.inChannels, t.outChannels
	for f := 0; f < frames; f++ {
		frame := t.in[f*in : (f+1)*in]
		switch {
		case in == out:
			copy(t.mixed[f*out:], frame)
		case out == 1:
			var sum int64
			for _, s := range frame {
				sum += int64(s)
			}
			t.mixed[f] = int32(sum / int64(in))
		default:
			copy(t.mixed[f*out:(f+1)*out], frame[:out])
		}
	}
}
