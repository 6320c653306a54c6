package sequencer

import (
	"fmt"
	"math"
	"strconv"
)

var semitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// NoteNumber converts a note name such as "C5", "F#3" or "Bb4" to a MIDI note
// number. Octaves 0 to 8 are accepted.
func NoteNumber(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}
	letter := name[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	semitone, ok := semitones[letter]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}
	rest := name[1:]
	switch rest[0] {
	case '#':
		semitone++
		rest = rest[1:]
	case 'b':
		semitone--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil || octave < 0 || octave > 8 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}
	return (octave+1)*12 + semitone, nil
}

// NoteToFreq converts a note name to its frequency with A4 = 440 Hz.
func NoteToFreq(name string) (float64, error) {
	n, err := NoteNumber(name)
	if err != nil {
		return 0, err
	}
	return NumberToFreq(n), nil
}

func NumberToFreq(n int) float64 {
	return 440 * math.Pow(2, float64(n-69)/12)
}
