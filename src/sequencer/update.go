package sequencer

import "fmt"

// ----- Actions ----- //

// Action is an input to Update.
type Action interface {
	Name() string
}

type (
	Play       struct{}
	Stop       struct{}
	AddStep    struct{}
	RemoveStep struct{}
	ResetSteps struct{}
	MuteToggle struct{}
	// Tick advances the step. Time is the render time of the new step.
	Tick struct {
		Time float64
		N    int // firings since the clock started
	}
	ToggleStep struct {
		Note string
		Step int
	}
	ChangeWaveform struct {
		Type Waveform
	}
	// ChangeDelay selects the "short" or "long" delay time.
	ChangeDelay struct {
		Length string
	}
	SetTempo struct {
		BPM float64
	}
)

func (Play) Name() string           { return "play" }
func (Stop) Name() string           { return "stop" }
func (Tick) Name() string           { return "tick" }
func (AddStep) Name() string        { return "add_step" }
func (RemoveStep) Name() string     { return "rmv_step" }
func (ToggleStep) Name() string     { return "toggle" }
func (ResetSteps) Name() string     { return "reset" }
func (MuteToggle) Name() string     { return "mute" }
func (ChangeWaveform) Name() string { return "waveform" }
func (ChangeDelay) Name() string    { return "delay" }
func (SetTempo) Name() string       { return "tempo" }

// Delay times selected by ChangeDelay.
const (
	ShortDelay = 0.2
	LongDelay  = 1.0
)

// ----- Update ----- //

// Update returns the model after applying a. The given model is never
// modified. On error the returned model is m itself.
func Update(a Action, m Model) (Model, error) {
	seq := m.Sequencer
	switch a := a.(type) {
	case Play:
		if !seq.Running {
			// the first firing after play lands on the current step again
			seq.Step = (seq.Step - 1 + seq.StepCount) % seq.StepCount
		}
		seq.Running = true
	case Stop:
		seq.Running = false
	case Tick:
		seq.Step = (seq.Step + 1) % seq.StepCount
		m.CurrentTime = a.Time
	case AddStep:
		seq.StepCount++
		seq.Rows = mapRows(seq.Rows, func(r Row) Row {
			r.Steps = append(append(make([]bool, 0, seq.StepCount), r.Steps...), false)
			return r
		})
	case RemoveStep:
		if seq.StepCount <= MinSteps {
			return m, &ConfigError{Field: "steps", Value: seq.StepCount - 1, Err: ErrStepFloor}
		}
		seq.StepCount--
		seq.Rows = mapRows(seq.Rows, func(r Row) Row {
			r.Steps = append([]bool(nil), r.Steps[:seq.StepCount]...)
			return r
		})
		if seq.Step >= seq.StepCount {
			seq.Step = seq.StepCount - 1
		}
	case ToggleStep:
		if a.Step < 0 || a.Step >= seq.StepCount {
			return m, fmt.Errorf("%w: %d", ErrStepOutOfRange, a.Step)
		}
		if _, ok := seq.Row(a.Note); !ok {
			return m, fmt.Errorf("%w: %s", ErrUnknownNote, a.Note)
		}
		seq.Rows = mapRows(seq.Rows, func(r Row) Row {
			if r.Name == a.Note {
				r.Steps = append([]bool(nil), r.Steps...)
				r.Steps[a.Step] = !r.Steps[a.Step]
			}
			return r
		})
	case ResetSteps:
		seq.Rows = mapRows(seq.Rows, func(r Row) Row {
			r.Steps = make([]bool, len(r.Steps))
			return r
		})
	case MuteToggle:
		if m.Synth.MasterGain == 1 {
			m.Synth.MasterGain = 0
		} else {
			m.Synth.MasterGain = 1
		}
	case ChangeWaveform:
		if !a.Type.Valid() {
			return m, &ConfigError{Field: "waveform", Value: a.Type, Err: ErrUnknownWaveform}
		}
		m.Synth.Waveform = a.Type
	case ChangeDelay:
		switch a.Length {
		case "short":
			m.Synth.DelayTime = ShortDelay
		case "long":
			m.Synth.DelayTime = LongDelay
		default:
			return m, &ConfigError{Field: "delay", Value: a.Length, Err: ErrUnknownDelay}
		}
	case SetTempo:
		interval, err := StepInterval(a.BPM, Eighth)
		if err != nil {
			return m, err
		}
		seq.Tempo = a.BPM
		seq.StepInterval = interval
	default:
		return m, fmt.Errorf("unhandled action: %T", a)
	}
	m.Sequencer = seq
	return m, nil
}

func mapRows(rows []Row, f func(Row) Row) []Row {
	result := make([]Row, len(rows))
	for i, r := range rows {
		result[i] = f(r)
	}
	return result
}
