// Package config loads the sequencer settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinjor/desktop-sequencer/src/sequencer"
)

// SynthConfig holds the initial synth settings.
type SynthConfig struct {
	Attack      float64 `json:"attack"`
	Decay       float64 `json:"decay"`
	Waveform    string  `json:"waveform"`
	DelayTime   float64 `json:"delayTime"`
	DelayAmount float64 `json:"delayAmount"`
	MasterGain  float64 `json:"masterGain"`
}

// Config is the main configuration structure
type Config struct {
	Notes  []string    `json:"notes"`
	Steps  int         `json:"steps"`
	Tempo  float64     `json:"tempo"`
	Synth  SynthConfig `json:"synth"`
	Socket string      `json:"socket"`
	Midi   bool        `json:"midi"`
	// MidiPort selects the first MIDI input whose name contains it.
	MidiPort string `json:"midiPort,omitempty"`
}

const DefaultSocket = "/tmp/desktop-sequencer.sock"

// Default returns the settings the sequencer starts with when there is no
// config file.
func Default() *Config {
	return &Config{
		Notes: []string{"C5", "B4", "A4", "G4", "F4", "E4", "D4", "C4"},
		Steps: 8,
		Tempo: 150,
		Synth: SynthConfig{
			Attack:      0,
			Decay:       0.2,
			Waveform:    string(sequencer.Sine),
			DelayTime:   1,
			DelayAmount: 0.2,
			MasterGain:  0,
		},
		Socket: DefaultSocket,
		Midi:   true,
	}
}

// Path returns the default config file path.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "desktop-sequencer", "config.json"), nil
}

// Load reads the config at path. Fields missing from the file keep their
// defaults, and a missing file means all defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the sequencer cannot start with.
func (c *Config) Validate() error {
	_, err := c.Model()
	return err
}

// Model builds the initial sequencer model.
func (c *Config) Model() (sequencer.Model, error) {
	if c.Synth.Attack < 0 {
		return sequencer.Model{}, &sequencer.ConfigError{Field: "attack", Value: c.Synth.Attack, Err: errNegative}
	}
	if c.Synth.Decay < 0 {
		return sequencer.Model{}, &sequencer.ConfigError{Field: "decay", Value: c.Synth.Decay, Err: errNegative}
	}
	if c.Synth.DelayAmount < 0 || c.Synth.DelayAmount > 1 {
		return sequencer.Model{}, &sequencer.ConfigError{Field: "delayAmount", Value: c.Synth.DelayAmount, Err: errOutOfUnit}
	}
	if c.Synth.DelayTime < 0 || c.Synth.DelayTime > 5 {
		return sequencer.Model{}, &sequencer.ConfigError{Field: "delayTime", Value: c.Synth.DelayTime, Err: errDelayTime}
	}
	if c.Synth.MasterGain != 0 && c.Synth.MasterGain != 1 {
		return sequencer.Model{}, &sequencer.ConfigError{Field: "masterGain", Value: c.Synth.MasterGain, Err: errMasterGain}
	}
	return sequencer.NewModel(c.Notes, c.Steps, c.Tempo, sequencer.Synth{
		Attack:      c.Synth.Attack,
		Decay:       c.Synth.Decay,
		Waveform:    sequencer.Waveform(c.Synth.Waveform),
		DelayTime:   c.Synth.DelayTime,
		DelayAmount: c.Synth.DelayAmount,
		MasterGain:  c.Synth.MasterGain,
	})
}
