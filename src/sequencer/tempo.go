package sequencer

import "math"

// Subdivisions per beat.
const (
	Quarter   = 1
	Eighth    = 2
	Sixteenth = 4
)

// StepInterval returns the length of one step in seconds.
func StepInterval(bpm float64, subdivisions int) (float64, error) {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return 0, &ConfigError{Field: "tempo", Value: bpm, Err: ErrInvalidTempo}
	}
	if subdivisions <= 0 {
		return 0, &ConfigError{Field: "subdivision", Value: subdivisions, Err: ErrInvalidSubdivision}
	}
	return 60 / bpm / float64(subdivisions), nil
}
