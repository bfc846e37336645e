// Package cop defines style rules and the machinery that runs them over one
// syntax tree: per-visit contexts, offence collection and the traversal
// driver that hands corrections to the rewriter.
package cop

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSeverity is returned by ParseSeverity for unrecognized names.
var ErrUnknownSeverity = errors.New("unknown severity")

// Severity orders offences: convention < warning < error.
type Severity int

const (
	SeverityConvention Severity = iota
	SeverityWarning
	SeverityError
)

var severityNames = [...]string{
	SeverityConvention: "convention",
	SeverityWarning:    "warning",
	SeverityError:      "error",
}

func (s Severity) String() string {
	if s >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// Code is the single-letter form used in text output.
func (s Severity) Code() string {
	switch s {
	case SeverityConvention:
		return "C"
	case SeverityWarning:
		return "W"
	case SeverityError:
		return "E"
	}
	return "?"
}

// ParseSeverity accepts a full name or its single-letter code, in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "convention", "c":
		return SeverityConvention, nil
	case "warning", "w":
		return SeverityWarning, nil
	case "error", "e":
		return SeverityError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
}

// MarshalText lets severities appear by name in JSON, YAML and TOML.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
