package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-organ/organ"
	"github.com/cwbudde/algo-organ/preset"
	"github.com/ebitengine/oto/v3"
)

const numChannels = 2

// engineReader feeds the engine's output to the audio backend. Read runs on
// the playback thread; the event schedule is consumed by frame position so no
// cross-thread note queue is needed for this demo player.
type engineReader struct {
	engine   *organ.Engine
	schedule []timedEvent
	frame    int
	buf      []float32
	events   []organ.Event
}

type timedEvent struct {
	frame int
	event organ.Event
}

func (r *engineReader) Read(p []byte) (int, error) {
	numFrames := len(p) / (4 * numChannels)
	if numFrames == 0 {
		return 0, nil
	}
	if len(r.buf) < numFrames*numChannels {
		r.buf = make([]float32, numFrames*numChannels)
	}

	r.events = r.events[:0]
	for len(r.schedule) > 0 && r.schedule[0].frame < r.frame+numFrames {
		r.events = append(r.events, r.schedule[0].event)
		r.schedule = r.schedule[1:]
	}

	r.engine.ProcessInto(r.events, r.buf, numFrames)
	r.frame += numFrames

	for i := 0; i < numFrames*numChannels; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return numFrames * 4 * numChannels, nil
}

func main() {
	notesFlag := flag.String("notes", "60,64,67", "Comma-separated MIDI notes to arpeggiate")
	velocity := flag.Float64("velocity", 0.8, "Note velocity in [0,1]")
	noteLen := flag.Float64("note-length", 0.4, "Seconds each note is held")
	gap := flag.Float64("gap", 0.1, "Seconds between note starts beyond note-length")
	sampleRate := flag.Int("sample-rate", 48000, "Playback sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	repeat := flag.Int("repeat", 2, "Number of passes through the note list")
	flag.Parse()

	notes, err := parseNotes(*notesFlag)
	if err != nil {
		die("invalid -notes: %v", err)
	}

	params := organ.NewDefaultParams()
	if *presetPath != "" {
		params, err = preset.LoadJSON(*presetPath)
		if err != nil {
			die("error loading preset %q: %v", *presetPath, err)
		}
	}

	engine := organ.NewEngine(*sampleRate, organ.MaxVoices, params)

	schedule, totalFrames := buildSchedule(notes, *repeat, float32(*velocity), *noteLen, *gap, *sampleRate)
	reader := &engineReader{engine: engine, schedule: schedule}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: numChannels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		die("audio context: %v", err)
	}
	<-ready

	player := ctx.NewPlayer(reader)
	player.Play()
	defer player.Close()

	// Monitoring loop at ~30 Hz. These reads race with the audio thread by
	// design; a stale value is fine for a status line.
	total := time.Duration(float64(totalFrames)/float64(*sampleRate)*float64(time.Second)) + 500*time.Millisecond
	deadline := time.Now().Add(total)
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		<-ticker.C
		fmt.Printf("\rvoices: %2d  loudness scale: %.3f", engine.ActiveVoiceCount(), engine.LoudnessScale())
	}
	fmt.Println()
}

func buildSchedule(notes []int, repeat int, velocity float32, noteLen, gap float64, sampleRate int) ([]timedEvent, int) {
	if repeat < 1 {
		repeat = 1
	}
	// The reader consumes the schedule in frame order, so steps must not
	// move backwards past an earlier note-off.
	if gap < 0 {
		gap = 0
	}
	step := int((noteLen + gap) * float64(sampleRate))
	hold := int(noteLen * float64(sampleRate))

	var schedule []timedEvent
	frame := 0
	for r := 0; r < repeat; r++ {
		for _, n := range notes {
			schedule = append(schedule, timedEvent{frame: frame, event: organ.Event{Type: organ.NoteOn, Note: n, Velocity: velocity}})
			schedule = append(schedule, timedEvent{frame: frame + hold, event: organ.Event{Type: organ.NoteOff, Note: n}})
			frame += step
		}
	}
	return schedule, frame + hold
}

func parseNotes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	notes := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad note %q", p)
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return notes, nil
}

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
