// Package prover defines the boundary between the document model and a
// running prover session: document identity, theory headers, immutable
// snapshots of analysis state, and the session operations that accept
// edits.
package prover

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/text"
)

var (
	ErrUnknownDocument = errors.New("prover: unknown document")
	ErrUnknownCommand  = errors.New("prover: unknown command")
	ErrSessionClosed   = errors.New("prover: session closed")
)

// DocumentRef identifies a theory document. Dir is used to resolve imports.
type DocumentRef struct {
	Name string
	Dir  string
}

// RefForPath builds the ref for a theory file path.
func RefForPath(p string) DocumentRef {
	base := filepath.Base(p)
	return DocumentRef{Name: base[:len(base)-len(filepath.Ext(base))], Dir: filepath.Dir(p)}
}

func (r DocumentRef) String() string {
	if r.Dir == "" || r.Dir == "." {
		return r.Name
	}
	return r.Dir + "/" + r.Name
}

// CommandID is the prover's identity for a command. IDs are stable across
// snapshots while the command text is unchanged.
type CommandID int64

// Command is an analyzed span of the document, in buffer coordinates of
// the snapshot it came from.
type Command struct {
	ID      CommandID
	Name    string
	Range   text.Range
	Ignored bool
}

type StatusKind int

const (
	StatusUnprocessed StatusKind = iota
	StatusRunning
	StatusFinished
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusUnprocessed:
		return "unprocessed"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// CommandStatus is the processing state of one command. Forks counts
// outstanding forked tasks while running.
type CommandStatus struct {
	Kind  StatusKind
	Forks int
}

func (s CommandStatus) IsUnprocessed() bool { return s.Kind == StatusUnprocessed }

// IsUnfinished reports a running command with outstanding forks.
func (s CommandStatus) IsUnfinished() bool { return s.Kind == StatusRunning && s.Forks > 0 }

// Markup element names.
const (
	MarkupBad        = "bad"
	MarkupHilite     = "hilite"
	MarkupTokenRange = "token_range"
	MarkupWriteln    = "writeln"
	MarkupWarning    = "warning"
	MarkupError      = "error"
)

// Markup is a tagged span.
type Markup struct {
	Range text.Range
	Name  string
}

// Message is a diagnostic markup span with its text.
type Message struct {
	Range  text.Range
	Name   string
	Text   string
	Legacy bool
}

// Snapshot is an immutable view of a document's analysis state. All ranges
// are already mapped through the pending edits it was requested with.
type Snapshot interface {
	Ref() DocumentRef
	Version() int64
	IsOutdated() bool

	Commands() []Command
	Command(id CommandID) (Command, bool)
	CommandsIn(r text.Range) ([]Command, error)
	Status(id CommandID) (CommandStatus, error)

	SelectMarkup(r text.Range, names ...string) ([]Markup, error)
	SelectMessages(r text.Range, names ...string) ([]Message, error)
}

// Session is a live connection to a prover.
type Session interface {
	ID() string

	InitDocument(ctx context.Context, ref DocumentRef, header HeaderResult, p text.Perspective, content string) error
	ApplyEdits(ctx context.Context, ref DocumentRef, header HeaderResult, p text.Perspective, edits []text.Edit) error
	Snapshot(ref DocumentRef, pending []text.Edit) (Snapshot, error)

	// InputDelay is the debounce interval for edit submission.
	InputDelay() time.Duration

	Subscribe(t event.Type, h event.Handler) event.SubscriptionID
	Unsubscribe(id event.SubscriptionID)

	// SubmitLock serializes submissions across all documents of the session.
	SubmitLock() *SubmitLock
}

// CommandsChanged is the payload of event.TypeCommandsChanged.
type CommandsChanged struct {
	Nodes    []DocumentRef
	Commands []CommandID
}

// Affects reports whether ref is among the changed nodes.
func (c CommandsChanged) Affects(ref DocumentRef) bool {
	for _, n := range c.Nodes {
		if n == ref {
			return true
		}
	}
	return false
}
