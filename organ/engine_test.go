package organ

import (
	"fmt"
	"math"
	"testing"
)

func TestNoteOnUsesFirstFreeVoice(t *testing.T) {
	e := NewEngine(48000, MaxVoices, NewDefaultParams())
	e.Process([]Event{{Type: NoteOn, Note: 60, Velocity: 1.0}}, 64)

	if !e.voices[0].active {
		t.Fatalf("expected first voice to take the note")
	}
	if e.voices[0].note != 60 {
		t.Fatalf("expected note 60, got %d", e.voices[0].note)
	}
	if math.Abs(float64(e.voices[0].velocity-velocityHeadroom)) > 1e-6 {
		t.Fatalf("expected velocity scaled by headroom, got %f", e.voices[0].velocity)
	}
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("expected 1 active voice, got %d", e.ActiveVoiceCount())
	}
}

func TestStealingPrefersSoonestFinishingRelease(t *testing.T) {
	params := NewDefaultParams()
	params.ReleaseTime = 0.5
	e := NewEngine(48000, MaxVoices, params)

	// Fill the pool, then release two voices at staggered times so their
	// remaining release windows differ.
	events := make([]Event, 0, MaxVoices)
	for i := 0; i < MaxVoices; i++ {
		events = append(events, Event{Type: NoteOn, Note: 40 + i, Velocity: 1.0})
	}
	e.Process(events, 256)

	e.Process([]Event{{Type: NoteOff, Note: 43}}, 256)
	e.Process([]Event{{Type: NoteOff, Note: 41}}, 256)

	// Voice for note 43 released earlier, so it is closer to finishing.
	want := e.findVoiceForNote(43)
	if want == nil || !want.releasing() {
		t.Fatalf("expected note 43 to be releasing")
	}
	got := e.findFreeVoice()
	if got != want {
		t.Fatalf("expected stealing to pick the soonest-finishing release")
	}
}

func TestStealingPicksQuietestWhenAllSustaining(t *testing.T) {
	e := NewEngine(48000, MaxVoices, NewDefaultParams())

	const quietIdx = 7
	events := make([]Event, 0, MaxVoices)
	for i := 0; i < MaxVoices; i++ {
		vel := float32(0.5 + 0.03*float32(i))
		if i == quietIdx {
			vel = 0.1
		}
		events = append(events, Event{Type: NoteOn, Note: 40 + i, Velocity: vel})
	}
	// 256 frames is enough for the 2 ms attack to complete at 48 kHz, so
	// every voice sits in sustain.
	e.Process(events, 256)
	if e.ActiveVoiceCount() != MaxVoices {
		t.Fatalf("expected full pool, got %d", e.ActiveVoiceCount())
	}

	stolen := e.findFreeVoice()
	if stolen != &e.voices[quietIdx] {
		t.Fatalf("expected quietest voice (index %d) to be stolen", quietIdx)
	}

	// A 17th note-on actually lands on that voice.
	e.Process([]Event{{Type: NoteOn, Note: 100, Velocity: 1.0}}, 64)
	if e.voices[quietIdx].note != 100 {
		t.Fatalf("expected 17th note to reassign voice %d, got note %d", quietIdx, e.voices[quietIdx].note)
	}
}

func TestNoteOffForUnknownNoteIsSilentlyIgnored(t *testing.T) {
	e := NewEngine(48000, MaxVoices, NewDefaultParams())
	e.Process([]Event{{Type: NoteOn, Note: 60, Velocity: 1.0}}, 64)
	e.Process([]Event{{Type: NoteOff, Note: 61}}, 64)
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("unknown note-off must not affect other voices")
	}
}

func TestAllNotesOffReleasesEveryVoice(t *testing.T) {
	params := NewDefaultParams()
	params.ReleaseTime = 0.01
	e := NewEngine(48000, MaxVoices, params)

	e.Process([]Event{
		{Type: NoteOn, Note: 60, Velocity: 1.0},
		{Type: NoteOn, Note: 64, Velocity: 1.0},
		{Type: NoteOn, Note: 67, Velocity: 1.0},
	}, 256)

	e.Process([]Event{{Type: AllNotesOff}}, 48000/50)
	// 20ms of audio covers the 10ms release.
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("expected all voices idle after all-notes-off, got %d", e.ActiveVoiceCount())
	}
}

func TestOvertoneControlIsClamped(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 1},
		{-5, 1},
		{8, 8},
		{33, MaxOvertones},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("Overtones%d", tc.in), func(t *testing.T) {
			params := NewDefaultParams()
			params.Overtones = tc.in
			e := NewEngine(48000, MaxVoices, params)
			e.Process([]Event{{Type: NoteOn, Note: 60, Velocity: 1.0}}, 64)
			if got := e.voices[0].bank.overtones; got != tc.want {
				t.Fatalf("expected %d overtones, got %d", tc.want, got)
			}
		})
	}
}

func TestSmoothingCoefficientForKnownRate(t *testing.T) {
	e := NewEngine(44100, MaxVoices, NewDefaultParams())
	want := 1.0 - math.Exp(-1.0/(0.02*44100.0))
	if math.Abs(float64(e.smoothingCoeff)-want) > 1e-7 {
		t.Fatalf("smoothing coeff mismatch: got=%g want=%g", e.smoothingCoeff, want)
	}
}

func TestLoudnessScaleConvergesToEqualPowerTarget(t *testing.T) {
	params := NewDefaultParams()
	params.Overtones = 1
	e := NewEngine(44100, MaxVoices, params)

	events := []Event{
		{Type: NoteOn, Note: 60, Velocity: 0.5},
		{Type: NoteOn, Note: 64, Velocity: 0.5},
		{Type: NoteOn, Note: 67, Velocity: 0.5},
		{Type: NoteOn, Note: 72, Velocity: 0.5},
	}
	// Five smoothing time constants (~100 ms) of audio.
	renderBlocks(e, events, 44100/10)

	if math.Abs(float64(e.LoudnessScale()-0.5)) > 0.01 {
		t.Fatalf("expected loudness scale near 1/sqrt(4)=0.5, got %f", e.LoudnessScale())
	}
}

func TestLoudnessTargetAppliesOvertoneCompensation(t *testing.T) {
	params := NewDefaultParams()
	params.Overtones = 8
	e := NewEngine(44100, MaxVoices, params)

	events := []Event{
		{Type: NoteOn, Note: 60, Velocity: 0.5},
		{Type: NoteOn, Note: 64, Velocity: 0.5},
		{Type: NoteOn, Note: 67, Velocity: 0.5},
		{Type: NoteOn, Note: 72, Velocity: 0.5},
	}
	renderBlocks(e, events, 44100/10)

	want := 0.5 * (0.7 + 0.3/math.Log10(9.0))
	if math.Abs(float64(e.targetLoudnessScale)-want) > 1e-5 {
		t.Fatalf("overtone-compensated target mismatch: got=%f want=%f", e.targetLoudnessScale, want)
	}
}

func TestLoudnessTargetReturnsToUnityWhenSilent(t *testing.T) {
	params := NewDefaultParams()
	params.ReleaseTime = 0.005
	e := NewEngine(48000, MaxVoices, params)
	e.Process([]Event{{Type: NoteOn, Note: 60, Velocity: 1.0}}, 256)
	e.Process([]Event{{Type: NoteOff, Note: 60}}, 4800)
	if e.targetLoudnessScale != 1.0 {
		t.Fatalf("expected unity target with no active voices, got %f", e.targetLoudnessScale)
	}
}

func TestSoftClipIdentityBelowKnee(t *testing.T) {
	for _, x := range []float32{0, 0.1, -0.35, 0.69, -0.7, 0.7} {
		if softClip(x) != x {
			t.Fatalf("expected identity for %f, got %f", x, softClip(x))
		}
	}
}

func TestSoftClipBoundedByUnity(t *testing.T) {
	for _, x := range []float32{0.71, 1.0, 2.0, 10.0, 1000.0, -0.71, -1.0, -2.0, -10.0, -1000.0} {
		y := softClip(x)
		if absf(y) > 1.0 {
			t.Fatalf("soft clip exceeded full scale for %f: %f", x, y)
		}
		if x > 0 && y <= softClipKnee {
			t.Fatalf("positive excursion fell below knee: clip(%f)=%f", x, y)
		}
		if x < 0 && y >= -softClipKnee {
			t.Fatalf("negative excursion rose above knee: clip(%f)=%f", x, y)
		}
	}
}

func TestProcessIntoDoesNotAllocate(t *testing.T) {
	e := NewEngine(48000, MaxVoices, NewDefaultParams())
	events := []Event{{Type: NoteOn, Note: 60, Velocity: 1.0}}
	out := make([]float32, 256*2)
	e.ProcessInto(events, out, 256)

	allocs := testing.AllocsPerRun(100, func() {
		e.ProcessInto(nil, out, 256)
	})
	if allocs != 0 {
		t.Fatalf("hot path allocated %.1f times per block", allocs)
	}
}

func TestPoolSizeIsClamped(t *testing.T) {
	e := NewEngine(48000, 64, NewDefaultParams())
	if e.poolSize != MaxVoices {
		t.Fatalf("expected pool clamp to %d, got %d", MaxVoices, e.poolSize)
	}
	e = NewEngine(48000, 0, NewDefaultParams())
	if e.poolSize != 1 {
		t.Fatalf("expected minimum pool of 1, got %d", e.poolSize)
	}
}
