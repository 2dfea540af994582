package organ

// envelope is a linear attack/release amplitude gate. The sustain stage is
// implicit: once the attack ramp completes the level holds at 1.0 until
// release() is called. Changing attack or release times mid-envelope only
// affects the next trigger; an in-flight ramp keeps the totals captured at
// its start.
type envelope struct {
	attackActive  bool
	releaseActive bool

	attackLevel       float32
	releaseLevel      float32
	releaseStartLevel float32

	// configured ramp lengths, applied at the next trigger/release
	attackTotal  int
	releaseTotal int

	// in-flight ramp state; totals are captured when the ramp starts so a
	// mid-ramp time change cannot warp the slope
	attackRampTotal  int
	attackRemaining  int
	releaseRampTotal int
	releaseRemaining int
}

// setAttackTime derives the attack ramp length from seconds at the given
// sample rate, floored at one sample.
func (e *envelope) setAttackTime(seconds float32, sampleRate float64) {
	e.attackTotal = maxInt(1, int(float64(seconds)*sampleRate))
}

// setReleaseTime derives the release ramp length from seconds at the given
// sample rate, floored at one sample.
func (e *envelope) setReleaseTime(seconds float32, sampleRate float64) {
	e.releaseTotal = maxInt(1, int(float64(seconds)*sampleRate))
}

// trigger (re)starts the attack ramp from silence, discarding any in-flight
// release.
func (e *envelope) trigger() {
	e.attackActive = true
	e.attackLevel = 0.0
	e.attackRampTotal = e.attackTotal
	e.attackRemaining = e.attackTotal
	e.releaseActive = false
	e.releaseLevel = 1.0
}

// release enters the release stage, ramping from the current instantaneous
// level down to zero so a note released mid-attack does not jump to full
// level first.
func (e *envelope) release() {
	if e.releaseActive {
		return
	}
	level := float32(1.0)
	if e.attackActive {
		level = e.attackLevel
	}
	e.attackActive = false
	e.releaseActive = true
	e.releaseStartLevel = level
	e.releaseLevel = level
	e.releaseRampTotal = e.releaseTotal
	e.releaseRemaining = e.releaseTotal
}

// level returns the current gain multiplier.
func (e *envelope) level() float32 {
	switch {
	case e.attackActive:
		return e.attackLevel
	case e.releaseActive:
		return e.releaseLevel
	default:
		return 1.0
	}
}

// advance steps the envelope by one sample. It reports true when the release
// ramp has completed and the owning voice should go idle.
func (e *envelope) advance() bool {
	if e.attackActive {
		if e.attackRemaining > 0 {
			e.attackLevel = 1.0 - float32(e.attackRemaining)/float32(e.attackRampTotal)
			e.attackRemaining--
		} else {
			e.attackActive = false
			e.attackLevel = 1.0
		}
	}

	if e.releaseActive {
		if e.releaseRemaining > 0 {
			e.releaseLevel = e.releaseStartLevel * float32(e.releaseRemaining) / float32(e.releaseRampTotal)
			e.releaseRemaining--
		} else {
			e.releaseActive = false
			return true
		}
	}
	return false
}
