// Package decoration installs annotations as editor decorations and
// persistent markers, changing only what differs from what is installed.
package decoration

import (
	"github.com/bethropolis/proofsync/internal/annotation"
	"github.com/bethropolis/proofsync/internal/marker"
)

// Marker types.
const (
	MarkerProblem = "proofsync.problem"
	MarkerLegacy  = "proofsync.legacy"
	MarkerInfo    = "proofsync.info"
)

// MarkerKey is the (type, severity) a kind is stored under as a marker.
type MarkerKey struct {
	Type     string
	Severity marker.Severity
}

// Config maps annotation kinds to decoration types and marker keys.
type Config struct {
	Decorations map[annotation.Kind]string
	Markers     map[annotation.Kind]MarkerKey
}

// DecorationType is the decoration type name used for kind k by default.
func DecorationType(k annotation.Kind) string {
	return "proofsync." + k.String()
}

func DefaultConfig() Config {
	cfg := Config{
		Decorations: make(map[annotation.Kind]string),
		Markers: map[annotation.Kind]MarkerKey{
			annotation.KindError:   {Type: MarkerProblem, Severity: marker.SeverityError},
			annotation.KindWarning: {Type: MarkerProblem, Severity: marker.SeverityWarning},
			annotation.KindLegacy:  {Type: MarkerLegacy, Severity: marker.SeverityWarning},
			annotation.KindInfo:    {Type: MarkerInfo, Severity: marker.SeverityInfo},
		},
	}
	for _, k := range annotation.Kinds() {
		cfg.Decorations[k] = DecorationType(k)
	}
	return cfg
}

// KindForDecoration looks a kind up by decoration type.
func (c Config) KindForDecoration(typ string) (annotation.Kind, bool) {
	for k, t := range c.Decorations {
		if t == typ {
			return k, true
		}
	}
	return 0, false
}

// KindForMarker looks a kind up by marker key.
func (c Config) KindForMarker(key MarkerKey) (annotation.Kind, bool) {
	for k, mk := range c.Markers {
		if mk == key {
			return k, true
		}
	}
	return 0, false
}

// MarkerTypes lists the distinct marker types in the config.
func (c Config) MarkerTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range annotation.Kinds() {
		if mk, ok := c.Markers[k]; ok && !seen[mk.Type] {
			seen[mk.Type] = true
			out = append(out, mk.Type)
		}
	}
	return out
}
