package config

import "errors"

var (
	errNegative   = errors.New("must not be negative")
	errOutOfUnit  = errors.New("must be between 0 and 1")
	errDelayTime  = errors.New("must be between 0 and 5 seconds")
	errMasterGain = errors.New("must be 0 or 1")
)
