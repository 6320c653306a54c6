package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jinjor/desktop-sequencer/src/sequencer"
	"gitlab.com/gomidi/midi/v2"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrArguments      = errors.New("wrong arguments")
)

// ParseCommand converts a command line split into words into an action.
func ParseCommand(command []string) (sequencer.Action, error) {
	if len(command) == 0 {
		return nil, ErrUnknownCommand
	}
	args := command[1:]
	argc := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s takes %d, got %d", ErrArguments, command[0], n, len(args))
		}
		return nil
	}
	switch command[0] {
	case "play", "stop", "add_step", "rmv_step", "reset", "mute":
		if err := argc(0); err != nil {
			return nil, err
		}
		switch command[0] {
		case "play":
			return sequencer.Play{}, nil
		case "stop":
			return sequencer.Stop{}, nil
		case "add_step":
			return sequencer.AddStep{}, nil
		case "rmv_step":
			return sequencer.RemoveStep{}, nil
		case "reset":
			return sequencer.ResetSteps{}, nil
		default:
			return sequencer.MuteToggle{}, nil
		}
	case "toggle":
		if err := argc(2); err != nil {
			return nil, err
		}
		step, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("%w: step %q", ErrArguments, args[1])
		}
		return sequencer.ToggleStep{Note: args[0], Step: step}, nil
	case "waveform":
		if err := argc(1); err != nil {
			return nil, err
		}
		return sequencer.ChangeWaveform{Type: sequencer.Waveform(strings.ToLower(args[0]))}, nil
	case "delay":
		if err := argc(1); err != nil {
			return nil, err
		}
		return sequencer.ChangeDelay{Length: args[0]}, nil
	case "tempo":
		if err := argc(1); err != nil {
			return nil, err
		}
		bpm, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: tempo %q", ErrArguments, args[0])
		}
		return sequencer.SetTempo{BPM: bpm}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command[0])
}

// Commands dispatches commands until ctx is done or commandCh is closed.
// Bad commands are logged and skipped.
func (a *App) Commands(ctx context.Context, commandCh <-chan []string) error {
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Commands() interrupted")
			break loop
		case command, ok := <-commandCh:
			if !ok {
				break loop
			}
			action, err := ParseCommand(command)
			if err != nil {
				log.Printf("error: %v", err)
				continue
			}
			if err := a.Dispatch(action); err != nil {
				log.Printf("error: %s: %v", action.Name(), err)
			}
		}
	}
	log.Println("Commands() ended.")
	return nil
}

// ----- MIDI ----- //

// MidiAction maps a MIDI message to an action. A note-on toggles the row
// with that note at the current step. Start and stop control playback.
func MidiAction(m sequencer.Model, data []byte) (sequencer.Action, bool) {
	msg := midi.Message(data)
	var channel, key, velocity uint8
	if msg.GetNoteOn(&channel, &key, &velocity) {
		if velocity == 0 {
			return nil, false
		}
		for _, row := range m.Sequencer.Rows {
			n, err := sequencer.NoteNumber(row.Name)
			if err == nil && n == int(key) {
				return sequencer.ToggleStep{Note: row.Name, Step: m.Sequencer.Step}, true
			}
		}
		return nil, false
	}
	switch msg.Type() {
	case midi.StartMsg, midi.ContinueMsg:
		return sequencer.Play{}, true
	case midi.StopMsg:
		return sequencer.Stop{}, true
	}
	return nil, false
}

// HandleMidi dispatches actions for raw MIDI messages until ctx is done or
// midiCh is closed.
func (a *App) HandleMidi(ctx context.Context, midiCh <-chan []byte) error {
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("HandleMidi() interrupted")
			break loop
		case data, ok := <-midiCh:
			if !ok {
				break loop
			}
			action, ok := MidiAction(a.Model(), data)
			if !ok {
				continue
			}
			if err := a.Dispatch(action); err != nil {
				log.Printf("error: %s: %v", action.Name(), err)
			}
		}
	}
	log.Println("HandleMidi() ended.")
	return nil
}
