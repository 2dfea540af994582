package organ

import "math"

// monoChannel extracts the left channel from a stereo interleaved buffer.
// Both channels carry the same signal, so either would do.
func monoChannel(interleaved []float32) []float32 {
	out := make([]float32, len(interleaved)/2)
	for i := range out {
		out[i] = interleaved[i*2]
	}
	return out
}

func measureFundamentalFreq(samples []float32, sampleRate float32) float32 {
	startIdx := len(samples) / 10
	crossings := 0
	for i := startIdx + 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	if crossings == 0 {
		return 0
	}
	duration := float32(len(samples)-startIdx) / sampleRate
	return float32(crossings) / (2.0 * duration)
}

func windowRMS(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func peakAbs(samples []float32) float32 {
	peak := float32(0)
	for _, s := range samples {
		if a := absf(s); a > peak {
			peak = a
		}
	}
	return peak
}

func directConvolve(x []float32, h []float32) []float32 {
	y := make([]float32, len(x)+len(h)-1)
	for i := 0; i < len(x); i++ {
		for j := 0; j < len(h); j++ {
			y[i+j] += x[i] * h[j]
		}
	}
	return y
}

// renderBlocks drives an engine for the given number of frames, sending the
// events with the first block, and returns the mono output.
func renderBlocks(e *Engine, events []Event, numFrames int) []float32 {
	const blockSize = 128
	mono := make([]float32, 0, numFrames)
	rendered := 0
	for rendered < numFrames {
		frames := blockSize
		if rendered+frames > numFrames {
			frames = numFrames - rendered
		}
		block := e.Process(events, frames)
		events = nil
		mono = append(mono, monoChannel(block)...)
		rendered += frames
	}
	return mono
}
