// Package marker stores persistent problem markers per resource.
package marker

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("marker: not found")

// Severity orders markers by importance.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity accepts the names produced by String.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Marker is a diagnostic attached to a resource. Line is 1-based.
type Marker struct {
	ID         string   `json:"id"`
	Resource   string   `json:"resource"`
	Type       string   `json:"type"`
	Severity   Severity `json:"severity"`
	CharStart  int      `json:"char_start"`
	CharEnd    int      `json:"char_end"`
	Line       int      `json:"line"`
	Location   string   `json:"location"`
	Message    string   `json:"message,omitempty"`
	HasMessage bool     `json:"has_message"`
}

// Tx groups marker changes for one resource. All changes made in a Tx
// become visible together.
type Tx interface {
	Delete(id string) error
	Create(m Marker) (Marker, error)
}

// Store persists markers.
type Store interface {
	// Find returns the resource's markers of the given types, or of every
	// type if none are given, ordered by CharStart.
	Find(resource string, types ...string) ([]Marker, error)
	// Update runs fn in one atomic change. If fn fails nothing is applied.
	Update(resource string, fn func(tx Tx) error) error
	Close() error
}

func typeFilter(types []string) func(string) bool {
	if len(types) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return func(t string) bool { return set[t] }
}
