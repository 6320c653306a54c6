package app

import (
	"context"
	"errors"
	"testing"

	"github.com/jinjor/desktop-sequencer/src/sequencer"
	"gitlab.com/gomidi/midi/v2"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		command []string
		action  sequencer.Action
		err     error
	}{
		{[]string{"play"}, sequencer.Play{}, nil},
		{[]string{"stop"}, sequencer.Stop{}, nil},
		{[]string{"add_step"}, sequencer.AddStep{}, nil},
		{[]string{"rmv_step"}, sequencer.RemoveStep{}, nil},
		{[]string{"reset"}, sequencer.ResetSteps{}, nil},
		{[]string{"mute"}, sequencer.MuteToggle{}, nil},
		{[]string{"toggle", "C#4", "3"}, sequencer.ToggleStep{Note: "C#4", Step: 3}, nil},
		{[]string{"waveform", "Square"}, sequencer.ChangeWaveform{Type: sequencer.Square}, nil},
		{[]string{"delay", "short"}, sequencer.ChangeDelay{Length: "short"}, nil},
		{[]string{"tempo", "97.5"}, sequencer.SetTempo{BPM: 97.5}, nil},
		{[]string{}, nil, ErrUnknownCommand},
		{[]string{"jump"}, nil, ErrUnknownCommand},
		{[]string{"play", "now"}, nil, ErrArguments},
		{[]string{"toggle", "C4"}, nil, ErrArguments},
		{[]string{"toggle", "C4", "x"}, nil, ErrArguments},
		{[]string{"tempo", "fast"}, nil, ErrArguments},
	}
	for _, tt := range tests {
		action, err := ParseCommand(tt.command)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("%v: expected %v, but got %v", tt.command, tt.err, err)
			}
			continue
		}
		expectNoError(t, err)
		expectEqual(t, action, tt.action)
	}
}

func TestCommands(t *testing.T) {
	a, _ := newTestApp(t)
	ch := make(chan []string, 4)
	ch <- []string{"toggle", "G4", "1"}
	ch <- []string{"bogus"}
	ch <- []string{"waveform", "triangle"}
	close(ch)
	expectNoError(t, a.Commands(context.Background(), ch))
	m := a.Model()
	row, _ := m.Sequencer.Row("G4")
	expectEqual(t, row.Steps[1], true)
	expectEqual(t, m.Synth.Waveform, sequencer.Triangle)
}

func TestCommandsStopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	expectNoError(t, a.Commands(ctx, make(chan []string)))
}

func TestMidiAction(t *testing.T) {
	m, err := sequencer.NewModel([]string{"C5", "A4"}, 4, 120, sequencer.Synth{Waveform: sequencer.Sine})
	expectNoError(t, err)
	m.Sequencer.Step = 2

	action, ok := MidiAction(m, midi.NoteOn(0, 69, 100))
	expectEqual(t, ok, true)
	expectEqual(t, action, sequencer.ToggleStep{Note: "A4", Step: 2})

	_, ok = MidiAction(m, midi.NoteOn(0, 70, 100))
	expectEqual(t, ok, false)
	_, ok = MidiAction(m, []byte{0x90, 72, 0})
	expectEqual(t, ok, false)

	action, ok = MidiAction(m, []byte{0xFA})
	expectEqual(t, ok, true)
	expectEqual(t, action, sequencer.Play{})
	action, ok = MidiAction(m, []byte{0xFC})
	expectEqual(t, ok, true)
	expectEqual(t, action, sequencer.Stop{})
}

func TestHandleMidi(t *testing.T) {
	a, _ := newTestApp(t)
	ch := make(chan []byte, 2)
	ch <- midi.NoteOn(1, 72, 64)
	ch <- midi.NoteOff(1, 72)
	close(ch)
	expectNoError(t, a.HandleMidi(context.Background(), ch))
	row, _ := a.Model().Sequencer.Row("C5")
	expectEqual(t, row.Steps[0], true)
}
