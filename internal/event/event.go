// internal/event/event.go
package event

// Type identifies the kind of event.
type Type int

const (
	TypeUnknown Type = iota

	// Session lifecycle, published by session.Manager.
	TypeSessionStarted // Data: the started prover.Session
	TypeSessionStopped // Data: the stopped prover.Session

	// Prover output, published by a prover.Session.
	TypeCommandsChanged // Data: prover.CommandsChanged

	// Editor events.
	TypeBufferSaved // Data: BufferSavedData
	TypeAppQuit
)

var typeNames = map[Type]string{
	TypeUnknown:         "unknown",
	TypeSessionStarted:  "session-started",
	TypeSessionStopped:  "session-stopped",
	TypeCommandsChanged: "commands-changed",
	TypeBufferSaved:     "buffer-saved",
	TypeAppQuit:         "app-quit",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Event is the structure passed through the event bus.
type Event struct {
	Type Type
	Data interface{}
}

// BufferSavedData contains info about the saved buffer.
type BufferSavedData struct {
	FilePath string
}
