package organ

import "github.com/cwbudde/algo-approx"

// midiNoteToFreq converts a MIDI note number to frequency in Hz. Note numbers
// outside 0..127 pass through unchecked; they simply map to out-of-range but
// valid frequencies.
func midiNoteToFreq(note int) float32 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * pow2Approx(exponent)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// fastTanh approximates tanh via the exponential identity, using the fast
// exponential in the per-sample clipping path. Saturates for |x| > 8 to keep
// the exponential in range.
func fastTanh(x float32) float32 {
	if x > 8.0 {
		return 1.0
	}
	if x < -8.0 {
		return -1.0
	}
	e := approx.FastExp(2.0 * x)
	return (e - 1.0) / (e + 1.0)
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
