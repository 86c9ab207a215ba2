// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries fractional position and the last frame across chunk boundaries
package resample

// Resampler converts interleaved float32 audio between sample rates using
// linear interpolation. It is a streaming converter: the fractional read
// position and the last input frame survive between calls, so feeding the
// same audio in one call or in many produces the same output.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64 // input frames advanced per output frame

	// position of the next output frame in input-frame coordinates,
	// relative to the start of the next chunk; -1 addresses prev.
	position float64
	prev     []float32
	hasPrev  bool
}

// New creates a resampler between the given rates for interleaved audio with
// the given channel count.
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]float32, channels),
	}
}

// Resample converts a run of interleaved input samples and returns the
// converted output samples. Input must be frame-aligned.
func (r *Resampler) Resample(input []float32) []float32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return nil
	}

	// Upper bound on output frames for this chunk.
	maxOut := int(float64(inputFrames)/r.ratio) + 2
	output := make([]float32, 0, maxOut*r.channels)

	for {
		idx := int(r.position)
		if r.position < 0 {
			idx = -1
		}

		// Interpolation needs frame idx+1; stop when it is beyond this chunk.
		if idx+1 >= inputFrames {
			break
		}
		if idx < 0 && !r.hasPrev {
			// No previous frame to interpolate from yet.
			r.position = 0
			continue
		}

		frac := float32(r.position - float64(idx))

		for ch := 0; ch < r.channels; ch++ {
			var s1 float32
			if idx < 0 {
				s1 = r.prev[ch]
			} else {
				s1 = input[idx*r.channels+ch]
			}
			s2 := input[(idx+1)*r.channels+ch]
			output = append(output, s1*(1-frac)+s2*frac)
		}

		r.position += r.ratio
	}

	// Carry the final frame and rebase position for the next chunk.
	copy(r.prev, input[(inputFrames-1)*r.channels:])
	r.hasPrev = true
	r.position -= float64(inputFrames)

	return output
}

// Reset clears all carried state.
func (r *Resampler) Reset() {
	r.position = 0
	r.hasPrev = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputFrames estimates how many output frames a run of input frames yields.
func (r *Resampler) OutputFrames(inputFrames int) int {
	return int(float64(inputFrames) / r.ratio)
}
