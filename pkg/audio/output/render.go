// ABOUTME: Render cycle plumbing shared by hardware backends
// ABOUTME: Validates formats and converts rendered buffers to interleaved device PCM
package output

import (
	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/audiounit-go/caplay/pkg/audio/decode"
	"github.com/audiounit-go/caplay/pkg/audio/encode"
)

// ValidateFormat reports whether the built-in devices can play f
func ValidateFormat(f audio.StreamFormat) error {
	if f.SampleRate <= 0 || f.ChannelsPerFrame == 0 || f.BytesPerFrame == 0 {
		return audio.StatusFormatNotSupported
	}
	if f.FramesPerPacket > 1 {
		return audio.StatusFormatNotSupported
	}
	if _, err := decode.NewPCM(f); err != nil {
		return audio.StatusFormatNotSupported
	}

	bytesPerSample := (f.BitsPerChannel + 7) / 8
	want := bytesPerSample * f.ChannelsPerFrame
	if f.NonInterleaved() {
		want = bytesPerSample
	}
	if f.BytesPerFrame != want {
		return audio.StatusFormatNotSupported
	}
	return nil
}

// converter runs one render cycle and writes interleaved device samples.
// Scratch buffers are reused so steady-state cycles do not allocate.
type converter struct {
	format  audio.StreamFormat
	decoder *decode.PCMDecoder
	encoder encode.Encoder

	buffers  []Buffer
	storage  []byte
	planes   [][]int32
	samples  []int32
	sampleTs float64
	flags    ActionFlags
}

func newConverter(format audio.StreamFormat, bitDepth int) (*converter, error) {
	decoder, err := decode.NewPCM(format)
	if err != nil {
		return nil, audio.StatusFormatNotSupported
	}
	encoder, err := encode.NewPCM(bitDepth)
	if err != nil {
		return nil, audio.StatusFormatNotSupported
	}

	c := &converter{
		format:  format,
		decoder: decoder,
		encoder: encoder,
		buffers: make([]Buffer, format.BufferCount()),
		planes:  make([][]int32, format.BufferCount()),
	}
	return c, nil
}

// prepare sizes the destination buffers for frames and clears them
func (c *converter) prepare(frames int) []Buffer {
	capacity := c.format.BytesForFrames(frames)
	total := capacity * len(c.buffers)
	if cap(c.storage) < total {
		c.storage = make([]byte, total)
	}
	c.storage = c.storage[:total]
	clear(c.storage)

	channelsPerBuffer := c.format.ChannelsPerFrame
	if c.format.NonInterleaved() {
		channelsPerBuffer = 1
	}
	for i := range c.buffers {
		c.buffers[i] = Buffer{
			NumberChannels: channelsPerBuffer,
			Data:           c.storage[i*capacity : (i+1)*capacity : (i+1)*capacity],
		}
	}
	return c.buffers
}

// render asks fn for frames and writes them to out as interleaved PCM.
// On a failed cycle out is filled with silence and the status is returned.
func (c *converter) render(fn RenderFunc, out []byte, frames int) audio.Status {
	bufs := c.prepare(frames)

	status := audio.StatusNoConnection
	if fn != nil {
		c.flags = 0
		req := &RenderRequest{
			Flags: &c.flags,
			TimeStamp: TimeStamp{
				SampleTime: c.sampleTs,
				Flags:      TimeStampSampleTimeValid,
			},
			Frames:  uint32(frames),
			Buffers: bufs,
		}
		status = fn(req)
	}
	c.sampleTs += float64(frames)

	if status != audio.StatusOK || c.flags&ActionOutputIsSilence != 0 {
		clear(out)
		return status
	}

	channels := int(c.format.ChannelsPerFrame)
	n := frames * channels
	if cap(c.samples) < n {
		c.samples = make([]int32, n)
	}
	c.samples = c.samples[:n]

	if len(bufs) == 1 {
		c.decoder.DecodeInto(c.samples, bufs[0].Data)
	} else {
		for ch := range bufs {
			if cap(c.planes[ch]) < frames {
				c.planes[ch] = make([]int32, frames)
			}
			plane := c.planes[ch][:frames]
			c.decoder.DecodeInto(plane, bufs[ch].Data)
			for i, s := range plane {
				c.samples[i*channels+ch] = s
			}
		}
	}

	c.encoder.EncodeInto(out, c.samples)
	return status
}
