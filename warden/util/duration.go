// Package util holds small helpers shared by the configuration of the server.
package util

import (
	"fmt"
	"strings"
	"time"
)

// Duration is a time.Duration written as a string such as "1m30s" in configuration files. An empty string
// is a zero Duration.
type Duration time.Duration

// Std ...
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalText ...
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: cannot parse %q: %w", s, err)
	}
	if dur < 0 {
		return fmt.Errorf("duration: %q is negative", s)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText ...
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
