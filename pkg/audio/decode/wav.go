// ABOUTME: WAV file reader
// ABOUTME: Parses the RIFF header and streams the data chunk unchanged
package decode

import (
	"fmt"
	"io"

	"github.com/audiounit-go/caplay/pkg/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags
const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatALaw       = 6
	wavFormatMuLaw      = 7
	wavFormatExtensible = 0xFFFE
)

// NewWAV reads the header of a WAV file and returns a stream over its sample data.
// The stream takes ownership of r when r is an io.Closer.
func NewWAV(r io.ReadSeeker) (Stream, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %v", d.Err())
	}

	format, err := wavStreamFormat(d.WavAudioFormat, int(d.SampleRate), int(d.NumChans), int(d.BitDepth))
	if err != nil {
		return nil, err
	}

	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find WAV data chunk: %w", err)
	}

	s := &fileStream{
		Reader: io.LimitReader(d.PCMChunk, int64(d.PCMChunk.Size)),
		format: format,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

func wavStreamFormat(tag uint16, sampleRate, channels, bitDepth int) (audio.StreamFormat, error) {
	switch tag {
	case wavFormatPCM, wavFormatExtensible:
		format := audio.LinearPCM(sampleRate, channels, bitDepth, false)
		if bitDepth == 8 {
			// 8-bit WAV data is unsigned
			format.FormatFlags &^= audio.FlagIsSignedInteger
		}
		return format, nil
	case wavFormatIEEEFloat:
		format := audio.LinearPCM(sampleRate, channels, bitDepth, false)
		format.FormatFlags = audio.FlagIsFloat | audio.FlagIsPacked
		return format, nil
	case wavFormatALaw, wavFormatMuLaw:
		id := audio.FormatULaw
		if tag == wavFormatALaw {
			id = audio.FormatALaw
		}
		return audio.StreamFormat{
			SampleRate:       float64(sampleRate),
			FormatID:         id,
			BytesPerPacket:   uint32(channels),
			FramesPerPacket:  1,
			BytesPerFrame:    uint32(channels),
			ChannelsPerFrame: uint32(channels),
			BitsPerChannel:   8,
		}, nil
	default:
		return audio.StreamFormat{}, fmt.Errorf("unsupported WAV format tag: %d", tag)
	}
}
