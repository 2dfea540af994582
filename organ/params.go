package organ

// Control defaults mirror the engine's host-facing parameter ranges.
const (
	defaultAmplitude   = 0.5
	defaultOvertones   = 8
	defaultAttackTime  = 0.002 // fixed 2ms attack
	defaultReleaseTime = 0.02

	// velocityHeadroom scales incoming note velocity so a full-velocity
	// chord still leaves room before the clipper.
	velocityHeadroom = 0.8
)

// Params holds the three host-tunable control values. A control surface may
// write these fields from a non-realtime thread; the engine reads them once
// per block and smooths the result at audio rate, so no stronger guarantee
// than "a recent value" is needed.
type Params struct {
	// MasterAmplitude is the output gain in [0,1].
	MasterAmplitude float32
	// Overtones is the number of summed harmonics per voice, clamped to
	// [1, MaxOvertones] at block start.
	Overtones int
	// ReleaseTime is the release ramp duration in seconds.
	ReleaseTime float32
}

// NewDefaultParams creates params with the engine defaults.
func NewDefaultParams() *Params {
	return &Params{
		MasterAmplitude: defaultAmplitude,
		Overtones:       defaultOvertones,
		ReleaseTime:     defaultReleaseTime,
	}
}
