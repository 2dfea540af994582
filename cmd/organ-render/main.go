package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-dsp/measure/loudness"
	"github.com/cwbudde/algo-organ/organ"
	"github.com/cwbudde/algo-organ/preset"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func main() {
	notesFlag := flag.String("notes", "69", "Comma-separated MIDI note numbers to play as a chord (69 = A4 = 440 Hz)")
	velocity := flag.Float64("velocity", 0.8, "Note velocity in [0,1]")
	duration := flag.Float64("duration", 2.0, "Render duration in seconds")
	releaseAfter := flag.Float64("release-after", 1.5, "Send NoteOff after this many seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	amplitude := flag.Float64("amplitude", -1, "Master amplitude override in [0,1] (-1 keeps preset/default)")
	overtones := flag.Int("overtones", -1, "Overtone count override in [1,32] (-1 keeps preset/default)")
	release := flag.Float64("release", -1, "Release time override in seconds (-1 keeps preset/default)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	reportLUFS := flag.Bool("lufs", true, "Report EBU R128 integrated loudness of the render")
	flag.Parse()

	notes, err := parseNotes(*notesFlag)
	if err != nil {
		die("invalid -notes: %v", err)
	}
	if *sampleRate <= 0 {
		die("sample rate must be positive")
	}

	params := organ.NewDefaultParams()
	if *presetPath != "" {
		params, err = preset.LoadJSON(*presetPath)
		if err != nil {
			die("error loading preset %q: %v", *presetPath, err)
		}
	}
	if *amplitude >= 0 {
		params.MasterAmplitude = float32(*amplitude)
	}
	if *overtones >= 0 {
		params.Overtones = *overtones
	}
	if *release >= 0 {
		params.ReleaseTime = float32(*release)
	}

	fmt.Printf("Rendering notes %v, velocity %.2f, for %.2f seconds at %d Hz (overtones: %d)...\n",
		notes, *velocity, *duration, *sampleRate, params.Overtones)

	e := organ.NewEngine(*sampleRate, organ.MaxVoices, params)

	const blockSize = 128
	const numChannels = 2
	totalFrames := int(float64(*sampleRate) * (*duration))
	if totalFrames < 1 {
		totalFrames = 1
	}
	releaseAtFrame := int(float64(*sampleRate) * (*releaseAfter))

	var meter *loudness.Meter
	if *reportLUFS {
		meter = loudness.NewMeter(
			loudness.WithSampleRate(float64(*sampleRate)),
			loudness.WithChannels(numChannels),
		)
		meter.StartIntegration()
	}

	samples := make([]float32, 0, totalFrames*numChannels)
	meterBlock := make([]float64, blockSize*numChannels)

	events := make([]organ.Event, 0, len(notes))
	for _, n := range notes {
		events = append(events, organ.Event{Type: organ.NoteOn, Note: n, Velocity: float32(*velocity)})
	}

	released := false
	framesRendered := 0
	for framesRendered < totalFrames {
		frames := blockSize
		if framesRendered+frames > totalFrames {
			frames = totalFrames - framesRendered
		}

		if !released && framesRendered >= releaseAtFrame {
			for _, n := range notes {
				events = append(events, organ.Event{Type: organ.NoteOff, Note: n})
			}
			released = true
		}

		block := e.Process(events, frames)
		events = events[:0]
		samples = append(samples, block...)
		framesRendered += frames

		if meter != nil {
			for i, s := range block {
				meterBlock[i] = float64(s)
			}
			meter.ProcessBlock(meterBlock[:len(block)])
		}
	}

	file, err := os.Create(*output)
	if err != nil {
		die("error creating output file: %v", err)
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, *sampleRate, 16, numChannels, 1)
	defer encoder.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  *sampleRate,
			NumChannels: numChannels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		die("error writing WAV file: %v", err)
	}

	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, totalFrames)
	if meter != nil {
		fmt.Printf("Integrated loudness: %.1f LUFS\n", meter.Integrated())
	}
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
