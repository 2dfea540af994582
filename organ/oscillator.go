package organ

import "math"

// MaxOvertones is the largest number of harmonically related oscillators a
// single voice will sum.
const MaxOvertones = 32

// gainSumCeiling caps the worst-case in-phase sum of all overtone gains.
// Different harmonics occasionally align in phase, so the summed gains are
// normalized to stay under this safety margin.
const gainSumCeiling = 0.9

// oscillatorBank holds the phase accumulators, phase increments and gains for
// one voice's overtone stack. All storage is fixed-size so a bank never
// allocates after construction.
type oscillatorBank struct {
	phases     [MaxOvertones]float64 // radians, wrapped to [0, 2π)
	increments [MaxOvertones]float64 // radians per sample
	gains      [MaxOvertones]float32
	overtones  int
}

// overtoneGain computes the raw (pre-normalization) gain for one overtone.
// The double-exponential decay favors the fundamental and rolls off higher
// harmonics for a declipped, musically useful spectrum.
func overtoneGain(freq, baseFreq float32, overtone int) float32 {
	return 2.0 / float32(math.Pow(1.1, float64(freq/baseFreq))*math.Pow(1.6, float64(overtone)))
}

// configure sets up the bank for a fundamental frequency and overtone count.
// All phases reset to zero: a clean restart beats an audible phase
// discontinuity when the stack changes under a sounding note.
func (b *oscillatorBank) configure(baseFreq float32, overtones int, sampleRate float64) {
	if overtones < 1 {
		overtones = 1
	}
	if overtones > MaxOvertones {
		overtones = MaxOvertones
	}
	b.overtones = overtones

	gainSum := float32(0.0)
	for i := 0; i < overtones; i++ {
		overtoneFreq := baseFreq * float32(i+1)
		b.phases[i] = 0.0
		b.gains[i] = overtoneGain(overtoneFreq, baseFreq, i+1)
		b.increments[i] = twoPi * float64(overtoneFreq) / sampleRate
		gainSum += absf(b.gains[i])
	}

	if gainSum > gainSumCeiling {
		norm := gainSumCeiling / gainSum
		for i := 0; i < overtones; i++ {
			b.gains[i] *= norm
		}
	}
}

// sample returns the gain-weighted sum of all overtones at the current phases.
func (b *oscillatorBank) sample() float32 {
	sum := float32(0.0)
	for i := 0; i < b.overtones; i++ {
		sum += b.gains[i] * tableLookup(b.phases[i])
	}
	return sum
}

// advance steps every overtone's phase by one sample, wrapping into [0, 2π).
// A single subtraction suffices because audio-rate increments are always well
// below 2π.
func (b *oscillatorBank) advance() {
	for i := 0; i < b.overtones; i++ {
		b.phases[i] += b.increments[i]
		if b.phases[i] >= twoPi {
			b.phases[i] -= twoPi
		}
	}
}
