package organ

import (
	"math"
	"sync"
)

// wavetableSize is the length of the shared single-cycle sine table.
const wavetableSize = 4096

const twoPi = 2.0 * math.Pi

var (
	sineTable     [wavetableSize]float32
	wavetableOnce sync.Once
)

// initWavetable fills the shared sine table with one full cycle. Safe to call
// any number of times; only the first call has an effect.
func initWavetable() {
	wavetableOnce.Do(func() {
		for i := 0; i < wavetableSize; i++ {
			sineTable[i] = float32(math.Sin(twoPi * float64(i) / wavetableSize))
		}
	})
}

// tableLookup reads the sine table at an arbitrary phase in radians, with
// linear interpolation between the two nearest entries. Index computation
// wraps modulo the table size, so out-of-range and negative phases are valid.
func tableLookup(phase float64) float32 {
	pos := phase * (wavetableSize / twoPi)
	idx := int(math.Floor(pos)) % wavetableSize
	if idx < 0 {
		idx += wavetableSize
	}
	frac := float32(pos - math.Floor(pos))

	next := idx + 1
	if next == wavetableSize {
		next = 0
	}
	return sineTable[idx] + frac*(sineTable[next]-sineTable[idx])
}
