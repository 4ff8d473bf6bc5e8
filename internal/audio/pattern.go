// Package audio turns alert severities into declarative tone schedules for
// the client's audio output. Nothing here produces sound.
package audio

import (
	"math"
	"time"

	"github.com/aliweather/aliweather/internal/flood"
)

// Waveform is an oscillator shape.
type Waveform string

const (
	Sine     Waveform = "sine"
	Triangle Waveform = "triangle"
	Square   Waveform = "square"
	Sawtooth Waveform = "sawtooth"
)

// Layer names a voice in a schedule.
type Layer string

const (
	LayerTone   Layer = "tone"
	LayerRumble Layer = "rumble"
	LayerSiren  Layer = "siren"
)

// Layer parameters shared by every pattern that enables them.
const (
	RumbleFrequency    = 35.0
	SirenFrequencyLow  = 600.0
	SirenFrequencyHigh = 1200.0
	SirenModulationHz  = 2.0

	rumbleGain = 0.5
	sirenGain  = 0.6
)

// SoundPattern describes the alert sound for one severity.
type SoundPattern struct {
	Severity         flood.Severity `json:"severity"`
	Tones            []float64      `json:"tones"`
	ToneDurationSec  float64        `json:"toneDurationSec"`
	PauseSec         float64        `json:"pauseSec"`
	Repetitions      int            `json:"repetitions"`
	TotalDurationSec float64        `json:"totalDurationSec"`
	Waveform         Waveform       `json:"waveform"`
	HasRumble        bool           `json:"hasRumble"`
	HasSiren         bool           `json:"hasSiren"`
}

var patterns = [...]SoundPattern{
	flood.Info: {
		Severity:         flood.Info,
		Tones:            []float64{520},
		ToneDurationSec:  0.15,
		PauseSec:         0.1,
		Repetitions:      1,
		TotalDurationSec: 0.5,
		Waveform:         Sine,
	},
	flood.Warning: {
		Severity:         flood.Warning,
		Tones:            []float64{600, 750},
		ToneDurationSec:  0.2,
		PauseSec:         0.15,
		Repetitions:      2,
		TotalDurationSec: 1.4,
		Waveform:         Triangle,
	},
	flood.Danger: {
		Severity:         flood.Danger,
		Tones:            []float64{800, 600, 800},
		ToneDurationSec:  0.25,
		PauseSec:         0.1,
		Repetitions:      2,
		TotalDurationSec: 2.1,
		Waveform:         Square,
		HasRumble:        true,
	},
	flood.Extreme: {
		Severity:         flood.Extreme,
		Tones:            []float64{1000, 700, 1000, 700},
		ToneDurationSec:  0.15,
		PauseSec:         0.1,
		Repetitions:      3,
		TotalDurationSec: 3.0,
		Waveform:         Sawtooth,
		HasRumble:        true,
		HasSiren:         true,
	},
}

// SelectPattern returns the static pattern for a severity. Invalid
// severities get the Info pattern.
func SelectPattern(s flood.Severity) SoundPattern {
	if !s.Valid() {
		s = flood.Info
	}
	p := patterns[s]
	p.Tones = append([]float64(nil), p.Tones...)
	return p
}

// ScheduledTone is one voice to start at StartAt and stop DurationSec later.
// Siren tones sweep between Frequency and FrequencyTo ModulationHz times a second.
type ScheduledTone struct {
	Layer          Layer     `json:"layer"`
	Frequency      float64   `json:"frequency"`
	FrequencyTo    float64   `json:"frequencyTo,omitempty"`
	ModulationHz   float64   `json:"modulationHz,omitempty"`
	Waveform       Waveform  `json:"waveform"`
	Gain           float64   `json:"gain"`
	StartOffsetSec float64   `json:"startOffsetSec"`
	DurationSec    float64   `json:"durationSec"`
	StartAt        time.Time `json:"startAt"`
}

// Schedule expands a pattern into tone events relative to base, at unit gain.
// Tones are repetition-major: every tone of repetition 0, then every tone of
// repetition 1, with
//
//	offset = r*(duration+pause)*len(tones) + i*(duration+pause)
//
// Rumble and siren layers, when enabled, follow the tone events and span the
// whole pattern.
func Schedule(p SoundPattern, base time.Time) []ScheduledTone {
	return scheduleWithGain(p, base, 1)
}

func scheduleWithGain(p SoundPattern, base time.Time, gain float64) []ScheduledTone {
	step := p.ToneDurationSec + p.PauseSec
	n := len(p.Tones)

	out := make([]ScheduledTone, 0, n*p.Repetitions+2)
	for r := 0; r < p.Repetitions; r++ {
		for i, freq := range p.Tones {
			offset := roundMillis(float64(r)*step*float64(n) + float64(i)*step)
			out = append(out, ScheduledTone{
				Layer:          LayerTone,
				Frequency:      freq,
				Waveform:       p.Waveform,
				Gain:           gain,
				StartOffsetSec: offset,
				DurationSec:    p.ToneDurationSec,
				StartAt:        base.Add(seconds(offset)),
			})
		}
	}

	if p.HasRumble {
		out = append(out, ScheduledTone{
			Layer:       LayerRumble,
			Frequency:   RumbleFrequency,
			Waveform:    Sine,
			Gain:        roundMillis(gain * rumbleGain),
			DurationSec: p.TotalDurationSec,
			StartAt:     base,
		})
	}

	if p.HasSiren {
		out = append(out, ScheduledTone{
			Layer:        LayerSiren,
			Frequency:    SirenFrequencyLow,
			FrequencyTo:  SirenFrequencyHigh,
			ModulationHz: SirenModulationHz,
			Waveform:     Sine,
			Gain:         roundMillis(gain * sirenGain),
			DurationSec:  p.TotalDurationSec,
			StartAt:      base,
		})
	}

	return out
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}
