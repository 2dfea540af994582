package preset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/algo-organ/organ"
)

// File is the JSON schema for organ presets: the three host-tunable control
// values, each optional so partial presets override only what they name.
type File struct {
	MasterAmplitude *float32 `json:"master_amplitude"`
	Overtones       *int     `json:"overtones"`
	ReleaseTime     *float32 `json:"release_time"`
}

// LoadJSON loads a preset JSON file and applies it on top of default params.
func LoadJSON(path string) (*organ.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := organ.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveJSON writes the three control values to a preset JSON file.
func SaveJSON(path string, p *organ.Params) error {
	if p == nil {
		return fmt.Errorf("nil params")
	}
	f := File{
		MasterAmplitude: &p.MasterAmplitude,
		Overtones:       &p.Overtones,
		ReleaseTime:     &p.ReleaseTime,
	}
	b, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *organ.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.MasterAmplitude != nil {
		if *f.MasterAmplitude < 0 || *f.MasterAmplitude > 1 {
			return fmt.Errorf("master_amplitude must be in [0,1]")
		}
		dst.MasterAmplitude = *f.MasterAmplitude
	}
	if f.Overtones != nil {
		if *f.Overtones < 1 || *f.Overtones > organ.MaxOvertones {
			return fmt.Errorf("overtones must be in [1,%d]", organ.MaxOvertones)
		}
		dst.Overtones = *f.Overtones
	}
	if f.ReleaseTime != nil {
		if *f.ReleaseTime < 0.001 || *f.ReleaseTime > 0.5 {
			return fmt.Errorf("release_time must be in [0.001,0.5] seconds")
		}
		dst.ReleaseTime = *f.ReleaseTime
	}
	return nil
}
