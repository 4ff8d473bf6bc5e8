package audio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliweather/aliweather/internal/audio"
	"github.com/aliweather/aliweather/internal/flood"
)

var base = time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)

func toneLayer(tones []audio.ScheduledTone, layer audio.Layer) []audio.ScheduledTone {
	var out []audio.ScheduledTone
	for _, t := range tones {
		if t.Layer == layer {
			out = append(out, t)
		}
	}
	return out
}

func TestSelectPattern(t *testing.T) {
	tests := []struct {
		sev    flood.Severity
		tones  int
		rumble bool
		siren  bool
	}{
		{flood.Info, 1, false, false},
		{flood.Warning, 2, false, false},
		{flood.Danger, 3, true, false},
		{flood.Extreme, 4, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.sev.String(), func(t *testing.T) {
			p := audio.SelectPattern(tt.sev)
			assert.Equal(t, tt.sev, p.Severity)
			assert.Len(t, p.Tones, tt.tones)
			assert.Equal(t, tt.rumble, p.HasRumble)
			assert.Equal(t, tt.siren, p.HasSiren)
			assert.LessOrEqual(t, p.TotalDurationSec, 3.0)
		})
	}
}

func TestSelectPattern_InvalidSeverity(t *testing.T) {
	assert.Equal(t, flood.Info, audio.SelectPattern(flood.Severity(99)).Severity)
}

func TestSelectPattern_ReturnsCopy(t *testing.T) {
	p := audio.SelectPattern(flood.Warning)
	p.Tones[0] = 1

	assert.Equal(t, 600.0, audio.SelectPattern(flood.Warning).Tones[0])
}

func TestSchedule_WarningShape(t *testing.T) {
	tones := audio.Schedule(audio.SelectPattern(flood.Warning), base)
	require.Len(t, tones, 4)

	offsets := make([]float64, len(tones))
	freqs := make([]float64, len(tones))
	for i, tone := range tones {
		offsets[i] = tone.StartOffsetSec
		freqs[i] = tone.Frequency
		assert.Equal(t, audio.LayerTone, tone.Layer)
		assert.Equal(t, 0.2, tone.DurationSec)
		assert.Equal(t, audio.Triangle, tone.Waveform)
	}

	assert.Equal(t, []float64{0, 0.35, 0.7, 1.05}, offsets)
	assert.Equal(t, []float64{600, 750, 600, 750}, freqs)
	assert.Equal(t, base.Add(1050*time.Millisecond), tones[3].StartAt)
}

func TestSchedule_RepetitionMajorOrder(t *testing.T) {
	tones := toneLayer(audio.Schedule(audio.SelectPattern(flood.Danger), base), audio.LayerTone)
	require.Len(t, tones, 6)

	assert.Equal(t, []float64{800, 600, 800, 800, 600, 800}, []float64{
		tones[0].Frequency, tones[1].Frequency, tones[2].Frequency,
		tones[3].Frequency, tones[4].Frequency, tones[5].Frequency,
	})
	for i := 1; i < len(tones); i++ {
		assert.Greater(t, tones[i].StartOffsetSec, tones[i-1].StartOffsetSec)
	}
	assert.Equal(t, 1.05, tones[3].StartOffsetSec)
}

func TestSchedule_Layers(t *testing.T) {
	tests := []struct {
		sev    flood.Severity
		rumble int
		siren  int
	}{
		{flood.Info, 0, 0},
		{flood.Warning, 0, 0},
		{flood.Danger, 1, 0},
		{flood.Extreme, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.sev.String(), func(t *testing.T) {
			p := audio.SelectPattern(tt.sev)
			tones := audio.Schedule(p, base)

			rumble := toneLayer(tones, audio.LayerRumble)
			siren := toneLayer(tones, audio.LayerSiren)
			require.Len(t, rumble, tt.rumble)
			require.Len(t, siren, tt.siren)

			for _, layer := range append(rumble, siren...) {
				assert.Zero(t, layer.StartOffsetSec)
				assert.Equal(t, p.TotalDurationSec, layer.DurationSec)
				assert.Equal(t, base, layer.StartAt)
			}
			if tt.siren > 0 {
				assert.Equal(t, audio.SirenFrequencyLow, siren[0].Frequency)
				assert.Equal(t, audio.SirenFrequencyHigh, siren[0].FrequencyTo)
				assert.Equal(t, audio.SirenModulationHz, siren[0].ModulationHz)
			}
		})
	}
}

func TestSchedule_ExtremeFitsDuration(t *testing.T) {
	p := audio.SelectPattern(flood.Extreme)
	tones := toneLayer(audio.Schedule(p, base), audio.LayerTone)
	require.Len(t, tones, 12)

	last := tones[len(tones)-1]
	assert.LessOrEqual(t, last.StartOffsetSec+last.DurationSec, p.TotalDurationSec)
}
