package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jinjor/desktop-sequencer/src/sequencer"
)

func expectEqual(t *testing.T, actual interface{}, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got %v", expected, actual)
	}
}

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	expectNoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultModel(t *testing.T) {
	m, err := Default().Model()
	expectNoError(t, err)
	expectEqual(t, len(m.Sequencer.Rows), 8)
	expectEqual(t, m.Sequencer.Rows[0].Name, "C5")
	expectEqual(t, m.Sequencer.Rows[7].Name, "C4")
	expectEqual(t, m.Sequencer.StepCount, 8)
	expectEqual(t, m.Sequencer.Tempo, 150.0)
	expectEqual(t, m.Sequencer.Running, false)
	expectEqual(t, m.Synth, sequencer.Synth{
		Attack: 0, Decay: 0.2, Waveform: sequencer.Sine, DelayTime: 1, DelayAmount: 0.2, MasterGain: 0,
	})
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nothing.json"))
	expectNoError(t, err)
	expectEqual(t, reflect.DeepEqual(cfg, Default()), true)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := writeConfig(t, `{"tempo": 90, "synth": {"waveform": "square", "decay": 0.5}}`)
	cfg, err := Load(path)
	expectNoError(t, err)
	expectEqual(t, cfg.Tempo, 90.0)
	expectEqual(t, cfg.Steps, 8)
	expectEqual(t, cfg.Synth.Waveform, "square")
	expectEqual(t, cfg.Synth.Decay, 0.5)
	expectEqual(t, cfg.Socket, DefaultSocket)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
	}{
		{"tempo", `{"tempo": 0}`, sequencer.ErrInvalidTempo},
		{"steps", `{"steps": 2}`, sequencer.ErrStepFloor},
		{"waveform", `{"synth": {"waveform": "noise"}}`, sequencer.ErrUnknownWaveform},
		{"note", `{"notes": ["C4", "X4"]}`, sequencer.ErrInvalidNote},
		{"delay amount", `{"synth": {"delayAmount": 1.5}}`, errOutOfUnit},
		{"delay time", `{"synth": {"delayTime": 6}}`, errDelayTime},
		{"master gain", `{"synth": {"masterGain": 0.5}}`, errMasterGain},
		{"decay", `{"synth": {"decay": -1}}`, errNegative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, but got %v", tt.err, err)
			}
			var ce *sequencer.ConfigError
			expectEqual(t, errors.As(err, &ce), true)
		})
	}
}

func TestLoadRejectsBrokenJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{"tempo": `))
	if err == nil {
		t.Fatal("expected an error")
	}
}
