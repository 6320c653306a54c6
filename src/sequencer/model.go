// Package sequencer holds the step sequencer state, the reducer that updates
// it, and the mapping from state to a declared audio graph.
package sequencer

import (
	"fmt"
)

// MinSteps is the smallest step count RemoveStep can reach.
const MinSteps = 4

// ----- Waveform ----- //

type Waveform string

const (
	Sine     Waveform = "sine"
	Triangle Waveform = "triangle"
	Sawtooth Waveform = "sawtooth"
	Square   Waveform = "square"
)

var Waveforms = []Waveform{Sine, Triangle, Sawtooth, Square}

func (w Waveform) Valid() bool {
	for _, v := range Waveforms {
		if v == w {
			return true
		}
	}
	return false
}

// ----- Model ----- //

type Row struct {
	Note  float64 // Hz
	Name  string
	Steps []bool
}

type State struct {
	Rows         []Row
	Running      bool
	Step         int
	StepCount    int
	StepInterval float64 // sec
	Tempo        float64 // bpm
}

type Synth struct {
	Attack      float64 // sec
	Decay       float64 // sec
	Waveform    Waveform
	DelayTime   float64 // sec
	DelayAmount float64
	MasterGain  float64
}

type Model struct {
	CurrentTime float64
	Sequencer   State
	Synth       Synth
}

// NewModel creates a stopped sequencer with one empty row per note.
func NewModel(notes []string, steps int, tempo float64, synth Synth) (Model, error) {
	if steps < MinSteps {
		return Model{}, &ConfigError{Field: "steps", Value: steps, Err: ErrStepFloor}
	}
	if !synth.Waveform.Valid() {
		return Model{}, &ConfigError{Field: "waveform", Value: synth.Waveform, Err: ErrUnknownWaveform}
	}
	interval, err := StepInterval(tempo, Eighth)
	if err != nil {
		return Model{}, err
	}
	rows := make([]Row, len(notes))
	for i, name := range notes {
		freq, err := NoteToFreq(name)
		if err != nil {
			return Model{}, &ConfigError{Field: "notes", Value: name, Err: err}
		}
		rows[i] = Row{Note: freq, Name: name, Steps: make([]bool, steps)}
	}
	return Model{
		Sequencer: State{
			Rows:         rows,
			StepCount:    steps,
			StepInterval: interval,
			Tempo:        tempo,
		},
		Synth: synth,
	}, nil
}

// Row returns the row for a note name.
func (s State) Row(name string) (Row, bool) {
	for _, row := range s.Rows {
		if row.Name == name {
			return row, true
		}
	}
	return Row{}, false
}

func (m Model) String() string {
	return fmt.Sprintf("step=%d/%d running=%v tempo=%g waveform=%s delay=%g gain=%g",
		m.Sequencer.Step, m.Sequencer.StepCount, m.Sequencer.Running, m.Sequencer.Tempo,
		m.Synth.Waveform, m.Synth.DelayTime, m.Synth.MasterGain)
}
