package driver

import (
	"errors"
	"fmt"
)

// ErrUnsupported is reported by drivers for settings the radio cannot apply.
var ErrUnsupported = errors.New("setting not supported by driver")

// ConfigError is a custom error type for configuration errors
type ConfigError struct {
	msg string
}

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{msg}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// DriverError reports a setting or read rejected by the radio driver. The
// driver's own error is kept unchanged and available through errors.Unwrap.
type DriverError struct {
	Driver string
	Op     string
	Err    error
}

func NewDriverError(driver, op string, err error) *DriverError {
	return &DriverError{Driver: driver, Op: op, Err: err}
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Driver, e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// RuntimeError is a custom error type for runtime errors
type RuntimeError struct {
	msg string
}

func NewRuntimeError(msg string) *RuntimeError {
	return &RuntimeError{msg}
}

func (e *RuntimeError) Error() string {
	return e.msg
}
