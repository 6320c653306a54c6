package sequencer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTempo       = errors.New("tempo must be positive")
	ErrInvalidSubdivision = errors.New("subdivision must be positive")
	ErrStepFloor          = fmt.Errorf("step count cannot go below %d", MinSteps)
	ErrUnknownWaveform    = errors.New("unknown waveform")
	ErrUnknownDelay       = errors.New("delay must be short or long")
	ErrInvalidNote        = errors.New("invalid note name")
	ErrUnknownNote        = errors.New("no row for note")
	ErrStepOutOfRange     = errors.New("step out of range")
)

// ConfigError is returned when a setting is rejected before it takes effect.
// The previous state is kept.
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
