package common

import (
	"encoding/json"
	"fmt"
)

// ConfigError reports a match rule file that could not be read or parsed.
// It only aborts processing of that rule file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid match rule file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MarshalJSON renders the error as its path and message
func (e *ConfigError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{Path: e.Path, Error: e.Err.Error()})
}

// IOError reports a file that could not be read while hashing. It is
// attached to the outcome of that file and never aborts the bundle.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
