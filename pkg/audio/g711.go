// ABOUTME: ITU-T G.711 companding
// ABOUTME: Converts between 8-bit mu-law/A-law codes and 16-bit linear samples
package audio

const (
	ulawBias = 0x84
	ulawClip = 32635
)

// ULawToLinear expands a mu-law code to a 16-bit linear sample
func ULawToLinear(u byte) int16 {
	u = ^u
	t := (int16(u&0x0F) << 3) + ulawBias
	t <<= (u & 0x70) >> 4
	if u&0x80 != 0 {
		return ulawBias - t
	}
	return t - ulawBias
}

// LinearToULaw compresses a 16-bit linear sample to a mu-law code
func LinearToULaw(sample int16) byte {
	var sign byte
	v := int32(sample)
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > ulawClip {
		v = ulawClip
	}
	v += ulawBias

	exp := byte(7)
	for mask := int32(0x4000); v&mask == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mantissa := byte(v>>(exp+3)) & 0x0F

	return ^(sign | exp<<4 | mantissa)
}

// ALawToLinear expands an A-law code to a 16-bit linear sample
func ALawToLinear(a byte) int16 {
	a ^= 0x55
	t := int16(a&0x0F) << 4
	seg := (a & 0x70) >> 4
	switch seg {
	case 0:
		t += 8
	case 1:
		t += 0x108
	default:
		t += 0x108
		t <<= seg - 1
	}
	if a&0x80 != 0 {
		return t
	}
	return -t
}
