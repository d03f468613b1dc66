package fluxvec

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates an invalid or missing control parameter.
	ErrConfig = errors.New("fluxvec: invalid configuration")

	// ErrNoRotorSource indicates that the selected mode has no usable source
	// of rotor speed and position.
	ErrNoRotorSource = errors.New("fluxvec: rotor position source unavailable")
)

// ConfigError names the offending parameter.
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s = %g: %s", ErrConfig, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}
