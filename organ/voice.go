package organ

// Voice represents one note instance: an oscillator bank gated by a linear
// attack/release envelope. Voices live in the engine's fixed pool and are
// reused in place; nothing here allocates after construction.
type Voice struct {
	sampleRate float64
	active     bool
	note       int
	velocity   float32 // scaled velocity in [0,1], valid while active
	overtones  int
	bank       oscillatorBank
	env        envelope
}

// setSampleRate re-derives all time-based state. An active voice restarts so
// its phase increments match the new rate.
func (v *Voice) setSampleRate(rate float64) {
	v.sampleRate = rate
	v.env.setAttackTime(defaultAttackTime, rate)
	v.env.setReleaseTime(defaultReleaseTime, rate)
	if v.active {
		v.start(v.note, v.velocity)
	}
}

// start assigns a note to the voice and begins the attack ramp. Velocity is
// the already-scaled amplitude in [0,1]. Retriggering a releasing or idle
// voice resets all state.
func (v *Voice) start(note int, velocity float32) {
	v.note = note
	v.velocity = velocity
	v.active = true

	baseFreq := midiNoteToFreq(note)
	v.bank.configure(baseFreq, v.overtones, v.sampleRate)
	v.env.trigger()
}

// stop begins the release ramp. A no-op on idle or already-releasing voices.
func (v *Voice) stop() {
	if !v.active || v.env.releaseActive {
		return
	}
	v.env.release()
}

// setOvertones updates the overtone count. A sustaining voice restarts its
// bank (with the usual phase reset); a releasing voice keeps its sounding
// configuration until the next start so the fade-out is not disturbed.
func (v *Voice) setOvertones(n int) {
	n = clampInt(n, 1, MaxOvertones)
	if n == v.overtones {
		return
	}
	v.overtones = n
	if v.active && !v.env.releaseActive {
		v.start(v.note, v.velocity)
	}
}

func (v *Voice) setAttackTime(seconds float32) {
	v.env.setAttackTime(seconds, v.sampleRate)
}

func (v *Voice) setReleaseTime(seconds float32) {
	v.env.setReleaseTime(seconds, v.sampleRate)
}

// sample produces the voice's contribution for the current sample position.
func (v *Voice) sample() float32 {
	if !v.active {
		return 0.0
	}
	return v.bank.sample() * v.velocity * v.env.level()
}

// advance steps oscillator phases and the envelope by one sample. Callers
// must advance strictly after the sample value has been written to every
// output channel.
func (v *Voice) advance() {
	if !v.active {
		return
	}
	v.bank.advance()
	if v.env.advance() {
		v.active = false
	}
}

func (v *Voice) releasing() bool {
	return v.active && v.env.releaseActive
}

func (v *Voice) releaseSamplesRemaining() int {
	if !v.env.releaseActive {
		return 0
	}
	return v.env.releaseRemaining
}

// amplitude is the current instantaneous envelope level scaled by velocity,
// used by the stealing policy to pick the least audible voice.
func (v *Voice) amplitude() float32 {
	return v.velocity * v.env.level()
}
