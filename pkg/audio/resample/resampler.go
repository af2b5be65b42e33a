// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Interpolates across chunk boundaries using the previous chunk's last frame
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64 // read position; frame 0 is lastSample
	lastSample []int32 // one sample per channel
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastSample: make([]int32, channels),
	}
}

// Resample converts input samples to output sample rate using linear interpolation.
// input and output are interleaved. output must hold OutputSamplesNeeded(len(input))
// samples; the function returns how many it wrote.
func (r *Resampler) Resample(input []int32, output []int32) int {
	ch := r.channels
	inputFrames := len(input) / ch
	if inputFrames == 0 {
		return 0
	}

	if !r.primed {
		copy(r.lastSample, input[:ch])
		input = input[ch:]
		inputFrames--
		r.primed = true
	}

	// Frame 0 is the carried frame, frames 1..inputFrames come from input
	frame := func(i, c int) int32 {
		if i == 0 {
			return r.lastSample[c]
		}
		return input[(i-1)*ch+c]
	}

	outputFrames := len(output) / ch
	outIdx := 0
	for outIdx < outputFrames {
		idx := int(r.position)
		if idx >= inputFrames {
			break
		}

		frac := r.position - float64(idx)
		for c := 0; c < ch; c++ {
			s1 := float64(frame(idx, c))
			s2 := float64(frame(idx+1, c))
			output[outIdx*ch+c] = int32(math.Round(s1*(1.0-frac) + s2*frac))
		}

		outIdx++
		r.position += r.ratio
	}

	if inputFrames > 0 {
		copy(r.lastSample, input[(inputFrames-1)*ch:inputFrames*ch])
		r.position -= float64(inputFrames)
		if r.position < 0 {
			r.position = 0
		}
	}

	return outIdx * ch
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
}

// Ratio returns input rate divided by output rate
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// OutputSamplesNeeded returns an output size that always fits the result of
// resampling inputSamples samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(math.Ceil(float64(inputFrames)/r.ratio)) + 1
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(math.Ceil(float64(outputFrames) * r.ratio))
	return inputFrames * r.channels
}
