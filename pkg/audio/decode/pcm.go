// ABOUTME: PCM audio decoder
// ABOUTME: Decodes companded, integer and float PCM bytes to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/audiounit-go/caplay/pkg/audio"
)

type sampleKind int

const (
	kindULaw sampleKind = iota
	kindALaw
	kindUnsigned8
	kindSigned8
	kindInt16
	kindInt24
	kindInt32
	kindFloat32
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	format         audio.StreamFormat
	kind           sampleKind
	bytesPerSample int
	order          binary.ByteOrder
}

// NewPCM creates a decoder for the given stream format.
// It fails for encodings no output device in this module can play.
func NewPCM(format audio.StreamFormat) (*PCMDecoder, error) {
	d := &PCMDecoder{
		format: format,
		order:  binary.LittleEndian,
	}
	if format.FormatFlags&audio.FlagIsBigEndian != 0 {
		d.order = binary.BigEndian
	}

	switch format.FormatID {
	case audio.FormatULaw, audio.FormatALaw:
		if format.BitsPerChannel != 8 {
			return nil, fmt.Errorf("unsupported bit depth for %s: %d (supported: 8)", format.FormatID, format.BitsPerChannel)
		}
		d.kind = kindULaw
		if format.FormatID == audio.FormatALaw {
			d.kind = kindALaw
		}
	case audio.FormatLinearPCM:
		if format.FormatFlags&audio.FlagIsFloat != 0 {
			if format.BitsPerChannel != 32 {
				return nil, fmt.Errorf("unsupported float bit depth: %d (supported: 32)", format.BitsPerChannel)
			}
			d.kind = kindFloat32
			break
		}
		switch format.BitsPerChannel {
		case 8:
			d.kind = kindUnsigned8
			if format.FormatFlags&audio.FlagIsSignedInteger != 0 {
				d.kind = kindSigned8
			}
		case 16:
			d.kind = kindInt16
		case 24:
			d.kind = kindInt24
		case 32:
			d.kind = kindInt32
		default:
			return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", format.BitsPerChannel)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format.FormatID)
	}

	if format.ChannelsPerFrame == 0 {
		return nil, fmt.Errorf("invalid channel count: 0")
	}

	d.bytesPerSample = int(format.BitsPerChannel+7) / 8
	return d, nil
}

// Format returns the stream format this decoder was built for
func (d *PCMDecoder) Format() audio.StreamFormat {
	return d.format
}

// BytesPerSample returns the width of one sample of one channel
func (d *PCMDecoder) BytesPerSample() int {
	return d.bytesPerSample
}

// Decode converts PCM bytes to int32 samples
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	samples := make([]int32, len(data)/d.bytesPerSample)
	d.DecodeInto(samples, data)
	return samples, nil
}

// DecodeInto decodes as many whole samples as fit in dst without allocating.
// It returns the number of samples written.
func (d *PCMDecoder) DecodeInto(dst []int32, data []byte) int {
	n := len(data) / d.bytesPerSample
	if n > len(dst) {
		n = len(dst)
	}

	switch d.kind {
	case kindULaw:
		for i := 0; i < n; i++ {
			dst[i] = audio.SampleFromInt16(audio.ULawToLinear(data[i]))
		}
	case kindALaw:
		for i := 0; i < n; i++ {
			dst[i] = audio.SampleFromInt16(audio.ALawToLinear(data[i]))
		}
	case kindUnsigned8:
		for i := 0; i < n; i++ {
			dst[i] = (int32(data[i]) - 128) << 16
		}
	case kindSigned8:
		for i := 0; i < n; i++ {
			dst[i] = int32(int8(data[i])) << 16
		}
	case kindInt16:
		for i := 0; i < n; i++ {
			dst[i] = audio.SampleFromInt16(int16(d.order.Uint16(data[i*2:])))
		}
	case kindInt24:
		for i := 0; i < n; i++ {
			b := data[i*3 : i*3+3]
			if d.order == binary.BigEndian {
				dst[i] = audio.SampleFrom24Bit([3]byte{b[2], b[1], b[0]})
			} else {
				dst[i] = audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]})
			}
		}
	case kindInt32:
		for i := 0; i < n; i++ {
			dst[i] = int32(d.order.Uint32(data[i*4:])) >> 8
		}
	case kindFloat32:
		for i := 0; i < n; i++ {
			dst[i] = floatToSample(math.Float32frombits(d.order.Uint32(data[i*4:])))
		}
	}

	return n
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}

func floatToSample(f float32) int32 {
	v := float64(f) * audio.Max24Bit
	if v > audio.Max24Bit {
		return audio.Max24Bit
	}
	if v < audio.Min24Bit {
		return audio.Min24Bit
	}
	return int32(v)
}
