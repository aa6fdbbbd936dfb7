package decoration

import (
	"fmt"
	"math"

	"github.com/bethropolis/proofsync/internal/annotation"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/marker"
	"github.com/bethropolis/proofsync/internal/metrics"
	"github.com/bethropolis/proofsync/internal/text"
	"github.com/bethropolis/proofsync/internal/types"
)

// Document is what the updater needs from the buffer being decorated.
type Document interface {
	Len() int
	PositionOf(offset int) types.Position
}

// Updater applies annotations to a decoration store and, optionally, a
// marker store. It is not safe for concurrent use; run it where the
// decoration store is owned (the UI goroutine).
type Updater struct {
	cfg         Config
	doc         Document
	decorations Store
	markers     marker.Store
	resource    string
}

// NewUpdater creates an updater. decorations or markers may be nil. When a
// marker store is given, kinds with a marker key become markers instead of
// decorations.
func NewUpdater(cfg Config, doc Document, decorations Store, markers marker.Store, resource string) *Updater {
	return &Updater{cfg: cfg, doc: doc, decorations: decorations, markers: markers, resource: resource}
}

// Result counts the changes made by one Update.
type Result struct {
	DecorationsAdded   int
	DecorationsRemoved int
	MarkersAdded       int
	MarkersRemoved     int
}

// Everything is the region used when no changed regions are given.
var Everything = text.R(0, math.MaxInt)

// Update replaces the installed decorations and markers inside changed with
// anns, leaving matching ones untouched. An empty changed means the whole
// document.
func (u *Updater) Update(changed []text.Range, anns []annotation.Info) (Result, error) {
	if len(changed) == 0 {
		changed = []text.Range{Everything}
	}
	var res Result
	bound := text.R(0, u.doc.Len())

	if u.decorations != nil {
		res.DecorationsAdded, res.DecorationsRemoved = u.updateDecorations(changed, anns, bound)
	} else {
		logger.DebugTagf("annotations", "%s: no decoration store, skipping decorations", u.resource)
	}

	if u.markers != nil {
		added, removed, err := u.updateMarkers(changed, anns, bound)
		if err != nil {
			return res, fmt.Errorf("update markers for %s: %w", u.resource, err)
		}
		res.MarkersAdded, res.MarkersRemoved = added, removed
	}

	metrics.Decorations.WithLabelValues("add").Add(float64(res.DecorationsAdded))
	metrics.Decorations.WithLabelValues("remove").Add(float64(res.DecorationsRemoved))
	metrics.Markers.WithLabelValues("add").Add(float64(res.MarkersAdded))
	metrics.Markers.WithLabelValues("remove").Add(float64(res.MarkersRemoved))
	return res, nil
}

func (u *Updater) isMarkerKind(k annotation.Kind) bool {
	if u.markers == nil {
		return false
	}
	_, ok := u.cfg.Markers[k]
	return ok
}

func overlapsAny(r text.Range, regions []text.Range) bool {
	for _, region := range regions {
		if r.Overlaps(region) {
			return true
		}
	}
	return false
}

type decKey struct {
	typ        string
	r          text.Range
	message    string
	hasMessage bool
}

func (u *Updater) updateDecorations(changed []text.Range, anns []annotation.Info, bound text.Range) (int, int) {
	want := make(map[decKey]int)
	var order []Decoration
	for _, a := range anns {
		if u.isMarkerKind(a.Kind) {
			continue
		}
		typ, ok := u.cfg.Decorations[a.Kind]
		if !ok {
			continue
		}
		r, ok := a.Range.TryRestrict(bound)
		if !ok {
			logger.DebugTagf("annotations", "%s: dropping %v outside document", u.resource, a)
			continue
		}
		d := Decoration{Type: typ, Range: r, Message: a.Message, HasMessage: a.HasMessage}
		want[decKey{d.Type, d.Range, d.Message, d.HasMessage}]++
		order = append(order, d)
	}

	var remove []uint64
	seen := make(map[uint64]bool)
	for _, region := range changed {
		for _, d := range u.decorations.Overlapping(region) {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			k := decKey{d.Type, d.Range, d.Message, d.HasMessage}
			if want[k] > 0 {
				want[k]--
				continue
			}
			remove = append(remove, d.ID)
		}
	}

	var add []Decoration
	for _, d := range order {
		k := decKey{d.Type, d.Range, d.Message, d.HasMessage}
		if want[k] > 0 {
			want[k]--
			add = append(add, d)
		}
	}

	if len(remove) > 0 || len(add) > 0 {
		u.decorations.Apply(remove, add)
	}
	return len(add), len(remove)
}

type markerKey struct {
	typ        string
	severity   marker.Severity
	start, end int
	message    string
	hasMessage bool
}

func keyOf(m marker.Marker) markerKey {
	return markerKey{m.Type, m.Severity, m.CharStart, m.CharEnd, m.Message, m.HasMessage}
}

func (u *Updater) updateMarkers(changed []text.Range, anns []annotation.Info, bound text.Range) (int, int, error) {
	want := make(map[markerKey]int)
	var order []marker.Marker
	for _, a := range anns {
		mk, ok := u.cfg.Markers[a.Kind]
		if !ok {
			continue
		}
		// A diagnostic is never lost: out-of-range markers go to the start.
		r, ok := a.Range.TryRestrict(bound)
		if !ok {
			r = text.R(0, 0)
		}
		line := u.doc.PositionOf(r.Start).Line + 1
		m := marker.Marker{
			Type:       mk.Type,
			Severity:   mk.Severity,
			CharStart:  r.Start,
			CharEnd:    r.End,
			Line:       line,
			Location:   fmt.Sprintf("line %d", line),
			Message:    a.Message,
			HasMessage: a.HasMessage,
		}
		want[keyOf(m)]++
		order = append(order, m)
	}

	existing, err := u.markers.Find(u.resource, u.cfg.MarkerTypes()...)
	if err != nil {
		return 0, 0, err
	}
	var remove []string
	for _, m := range existing {
		if !overlapsAny(text.R(m.CharStart, m.CharEnd), changed) {
			continue
		}
		if k := keyOf(m); want[k] > 0 {
			want[k]--
			continue
		}
		remove = append(remove, m.ID)
	}
	var add []marker.Marker
	for _, m := range order {
		if k := keyOf(m); want[k] > 0 {
			want[k]--
			add = append(add, m)
		}
	}

	if len(remove) == 0 && len(add) == 0 {
		return 0, 0, nil
	}
	err = u.markers.Update(u.resource, func(tx marker.Tx) error {
		for _, id := range remove {
			if err := tx.Delete(id); err != nil {
				return err
			}
		}
		for _, m := range add {
			if _, err := tx.Create(m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return len(add), len(remove), nil
}
