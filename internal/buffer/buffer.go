// Package buffer is the editable text the document model mirrors to the
// prover. Offsets are rune offsets throughout.
package buffer

import (
	"errors"

	"github.com/bethropolis/proofsync/internal/types"
)

// ErrOutOfRange is returned for offsets or lengths outside the buffer.
var ErrOutOfRange = errors.New("buffer: range out of bounds")

// ChangeEvent describes one replace: Length runes at Offset are replaced by Text.
type ChangeEvent struct {
	Offset int
	Length int
	Text   string
}

// Listener observes buffer mutations. DocumentAboutToBeChanged runs before
// the content changes, so the removed text is still readable; DocumentChanged
// runs after. Both run on the writer's goroutine and must not write to the
// buffer.
type Listener interface {
	DocumentAboutToBeChanged(ev ChangeEvent)
	DocumentChanged(ev ChangeEvent)
}

// ListenerID identifies a registration for RemoveListener.
type ListenerID uint64

// Buffer defines the text operations the editor and the document model need.
type Buffer interface {
	Load(filePath string) error
	Save(filePath string) error
	FilePath() string
	IsModified() bool

	Len() int
	Text() string
	Slice(offset, length int) (string, error)
	Replace(offset, length int, text string) error
	Insert(offset int, text string) error
	Delete(offset, length int) error

	LineCount() int
	Line(index int) (string, error)
	PositionOf(offset int) types.Position
	OffsetOf(pos types.Position) int

	AddListener(l Listener) ListenerID
	RemoveListener(id ListenerID)
}
