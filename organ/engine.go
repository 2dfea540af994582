package organ

import "math"

// MaxVoices is the fixed polyphony ceiling. The voice pool is allocated once
// at engine construction and never resized.
const MaxVoices = 16

const (
	// softClipKnee is where the output limiter transitions from identity to
	// tanh compression toward the ±1.0 asymptote.
	softClipKnee = 0.7

	// loudnessSmoothingSeconds is the time constant for smoothing the
	// polyphony gain scale, long enough to avoid audible pumping when the
	// active voice count changes.
	loudnessSmoothingSeconds = 0.02
)

// Engine is the polyphonic additive synthesizer core. It owns a fixed pool of
// voices and renders note events into blocks of audio samples. The whole
// per-block computation is single-threaded and allocation-free; only the
// monitoring accessors may be called concurrently with processing.
type Engine struct {
	sampleRate float64
	voices     [MaxVoices]Voice
	poolSize   int
	params     *Params

	currentLoudnessScale float32
	targetLoudnessScale  float32
	smoothingCoeff       float32

	// invSqrt[n] = 1/sqrt(n), precomputed for the equal-power voice scaling.
	invSqrt [MaxVoices + 1]float32
}

// NewEngine creates an engine with maxVoices of polyphony (clamped to
// [1, MaxVoices]). params may be nil, in which case defaults apply and
// controls cannot be changed later. Sample rate must be positive; the host
// layer is responsible for rejecting anything else before construction.
func NewEngine(sampleRate int, maxVoices int, params *Params) *Engine {
	initWavetable()

	e := &Engine{
		poolSize:             clampInt(maxVoices, 1, MaxVoices),
		params:               params,
		currentLoudnessScale: 1.0,
		targetLoudnessScale:  1.0,
	}
	for n := 1; n <= MaxVoices; n++ {
		e.invSqrt[n] = float32(1.0 / math.Sqrt(float64(n)))
	}
	e.SetSampleRate(sampleRate)
	return e
}

// SetSampleRate reconfigures all time-based parameters. Must be called before
// processing and whenever the host sample rate changes.
func (e *Engine) SetSampleRate(rate int) {
	e.sampleRate = float64(rate)
	for i := range e.voices {
		e.voices[i].setSampleRate(e.sampleRate)
	}

	e.currentLoudnessScale = 1.0
	e.targetLoudnessScale = 1.0
	e.smoothingCoeff = float32(1.0 - math.Exp(-1.0/(loudnessSmoothingSeconds*e.sampleRate)))
}

// Process renders numFrames of audio from the given note events and returns a
// freshly allocated stereo interleaved buffer. For realtime use prefer
// ProcessInto with a caller-owned buffer.
func (e *Engine) Process(events []Event, numFrames int) []float32 {
	out := make([]float32, numFrames*2)
	e.ProcessInto(events, out, numFrames)
	return out
}

// ProcessInto renders numFrames of audio into out, which must hold at least
// numFrames*2 samples (stereo interleaved; both channels carry the same
// mono-summed signal). It performs no allocation and never blocks.
func (e *Engine) ProcessInto(events []Event, out []float32, numFrames int) {
	amplitude, overtones, releaseTime := e.controls()

	for i := 0; i < e.poolSize; i++ {
		v := &e.voices[i]
		v.setOvertones(overtones)
		v.setReleaseTime(releaseTime)
		v.setAttackTime(defaultAttackTime)
	}

	for _, ev := range events {
		switch ev.Type {
		case NoteOn:
			velocity := clampf(ev.Velocity, 0.0, 1.0) * velocityHeadroom
			e.findFreeVoice().start(ev.Note, velocity)
		case NoteOff:
			if v := e.findVoiceForNote(ev.Note); v != nil {
				v.stop()
			}
		case AllNotesOff:
			for i := 0; i < e.poolSize; i++ {
				e.voices[i].stop()
			}
		}
	}

	// The overtone energy compensation only depends on the overtone count,
	// which is fixed for the duration of the block.
	overtoneFactor := float32(1.0)
	if overtones > 1 {
		overtoneFactor = 0.7 + float32(0.3/math.Log10(float64(overtones+1)))
	}

	for frame := 0; frame < numFrames; frame++ {
		active := 0
		for i := 0; i < e.poolSize; i++ {
			if e.voices[i].active {
				active++
			}
		}
		if active > 0 {
			e.targetLoudnessScale = e.invSqrt[active] * overtoneFactor
		} else {
			e.targetLoudnessScale = 1.0
		}

		e.currentLoudnessScale += e.smoothingCoeff * (e.targetLoudnessScale - e.currentLoudnessScale)

		value := float32(0.0)
		for i := 0; i < e.poolSize; i++ {
			if e.voices[i].active {
				value += e.voices[i].sample()
			}
		}

		value *= e.currentLoudnessScale
		value *= amplitude
		value = softClip(value)

		out[frame*2] = value
		out[frame*2+1] = value

		// Phases and envelopes advance strictly after the sample has been
		// written to every channel.
		for i := 0; i < e.poolSize; i++ {
			e.voices[i].advance()
		}
	}
}

// controls snapshots the host parameters once per block.
func (e *Engine) controls() (amplitude float32, overtones int, releaseTime float32) {
	amplitude = defaultAmplitude
	overtones = defaultOvertones
	releaseTime = defaultReleaseTime
	if e.params != nil {
		amplitude = e.params.MasterAmplitude
		overtones = e.params.Overtones
		releaseTime = e.params.ReleaseTime
	}
	overtones = clampInt(overtones, 1, MaxOvertones)
	return amplitude, overtones, releaseTime
}

// findFreeVoice returns the voice to use for a new note. Strict three-tier
// priority in a single scan: the first idle voice, else the releasing voice
// closest to finishing, else the quietest voice. First match in pool order
// wins ties. The pool is never empty, so a voice is always returned.
func (e *Engine) findFreeVoice() *Voice {
	var bestReleasing *Voice
	quietest := &e.voices[0]

	for i := 0; i < e.poolSize; i++ {
		v := &e.voices[i]
		if !v.active {
			return v
		}
		if v.releasing() {
			if bestReleasing == nil || v.releaseSamplesRemaining() < bestReleasing.releaseSamplesRemaining() {
				bestReleasing = v
			}
		}
		if v.amplitude() < quietest.amplitude() {
			quietest = v
		}
	}

	if bestReleasing != nil {
		return bestReleasing
	}
	return quietest
}

// findVoiceForNote returns the first active voice playing note, or nil. A
// note-off for an unknown or already-stolen note is a silent no-op.
func (e *Engine) findVoiceForNote(note int) *Voice {
	for i := 0; i < e.poolSize; i++ {
		v := &e.voices[i]
		if v.active && v.note == note {
			return v
		}
	}
	return nil
}

// ActiveVoiceCount reports how many voices currently contribute sound. Safe
// to call from a monitoring thread; the value may lag the audio thread by a
// block.
func (e *Engine) ActiveVoiceCount() int {
	count := 0
	for i := 0; i < e.poolSize; i++ {
		if e.voices[i].active {
			count++
		}
	}
	return count
}

// LoudnessScale reports the smoothed polyphony compensation factor. Same
// relaxed consistency as ActiveVoiceCount.
func (e *Engine) LoudnessScale() float32 {
	return e.currentLoudnessScale
}

// softClip passes values within ±softClipKnee unchanged and compresses
// excursions beyond it toward the ±1.0 asymptote, so finite input never
// exceeds full scale.
func softClip(x float32) float32 {
	const span = 1.0 - softClipKnee
	if x > softClipKnee {
		return softClipKnee + span*fastTanh((x-softClipKnee)/span)
	}
	if x < -softClipKnee {
		return -softClipKnee + span*fastTanh((x+softClipKnee)/span)
	}
	return x
}
