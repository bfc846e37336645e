// Package report renders inspection results as text or JSON.
package report

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/deflint/internal/cop"
	"github.com/donaldgifford/deflint/internal/source"
)

// Format selects an output renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text or json)", s)
}

// File is the result of inspecting one source file.
type File struct {
	Buffer   *source.Buffer
	Offences []cop.Offence
}

// Summary counts offences across all files.
type Summary struct {
	Files     int `json:"files"`
	Offences  int `json:"offences"`
	Corrected int `json:"corrected"`
}

// Summarize counts files, offences and applied corrections.
func Summarize(files []File) Summary {
	s := Summary{Files: len(files)}
	for _, f := range files {
		s.Offences += len(f.Offences)
		for _, o := range f.Offences {
			if o.Corrected {
				s.Corrected++
			}
		}
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
