package buffer

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/types"
)

type listenerEntry struct {
	id ListenerID
	l  Listener
}

// RuneBuffer is a Buffer over a rune slice with a line-start index.
// Writes are serialized; reads may run concurrently with listener callbacks.
type RuneBuffer struct {
	writeMu sync.Mutex // held for the whole replace, including callbacks

	mu         sync.RWMutex
	content    []rune
	lineStarts []int
	filePath   string
	modified   bool

	lmu       sync.Mutex
	listeners []listenerEntry
	nextID    ListenerID
}

// NewRuneBuffer creates a buffer holding s.
func NewRuneBuffer(s string) *RuneBuffer {
	b := &RuneBuffer{content: []rune(s)}
	b.reindex()
	return b
}

// Load reads a file, replacing the whole content. A missing file yields an
// empty buffer bound to that path. Listeners see the load as one replace.
func (b *RuneBuffer) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read file '%s': %w", filePath, err)
	}
	if err := b.Replace(0, b.Len(), string(data)); err != nil {
		return err
	}
	b.mu.Lock()
	b.filePath = filePath
	b.modified = false
	b.mu.Unlock()
	logger.Debugf("Loaded %s (%d runes)", filePath, b.Len())
	return nil
}

// Save writes the content to filePath, or to the bound path if empty.
func (b *RuneBuffer) Save(filePath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if filePath == "" {
		filePath = b.filePath
	}
	if filePath == "" {
		return errors.New("no file path to save to")
	}
	if err := os.WriteFile(filePath, []byte(string(b.content)), 0o644); err != nil {
		return fmt.Errorf("failed to write file '%s': %w", filePath, err)
	}
	b.filePath = filePath
	b.modified = false
	return nil
}

func (b *RuneBuffer) FilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filePath
}

func (b *RuneBuffer) IsModified() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.modified
}

func (b *RuneBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.content)
}

func (b *RuneBuffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.content)
}

func (b *RuneBuffer) Slice(offset, length int) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if offset < 0 || length < 0 || offset+length > len(b.content) {
		return "", fmt.Errorf("%w: slice(%d,%d) of %d", ErrOutOfRange, offset, length, len(b.content))
	}
	return string(b.content[offset : offset+length]), nil
}

// Replace substitutes length runes at offset with s, notifying listeners
// before and after the mutation.
func (b *RuneBuffer) Replace(offset, length int, s string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if n := b.Len(); offset < 0 || length < 0 || offset+length > n {
		return fmt.Errorf("%w: replace(%d,%d) of %d", ErrOutOfRange, offset, length, n)
	}
	if length == 0 && s == "" {
		return nil
	}

	ev := ChangeEvent{Offset: offset, Length: length, Text: s}
	listeners := b.snapshotListeners()
	for _, l := range listeners {
		l.DocumentAboutToBeChanged(ev)
	}

	ins := []rune(s)
	b.mu.Lock()
	next := make([]rune, 0, len(b.content)-length+len(ins))
	next = append(next, b.content[:offset]...)
	next = append(next, ins...)
	next = append(next, b.content[offset+length:]...)
	b.content = next
	b.modified = true
	b.reindex()
	b.mu.Unlock()

	for _, l := range listeners {
		l.DocumentChanged(ev)
	}
	return nil
}

func (b *RuneBuffer) Insert(offset int, s string) error {
	return b.Replace(offset, 0, s)
}

func (b *RuneBuffer) Delete(offset, length int) error {
	return b.Replace(offset, length, "")
}

func (b *RuneBuffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lineStarts)
}

// Line returns line index without its trailing newline.
func (b *RuneBuffer) Line(index int) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if index < 0 || index >= len(b.lineStarts) {
		return "", fmt.Errorf("%w: line %d of %d", ErrOutOfRange, index, len(b.lineStarts))
	}
	start := b.lineStarts[index]
	end := len(b.content)
	if index+1 < len(b.lineStarts) {
		end = b.lineStarts[index+1] - 1
	}
	return string(b.content[start:end]), nil
}

// PositionOf converts an offset to a line/column, clamping to the buffer.
func (b *RuneBuffer) PositionOf(offset int) types.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	offset = min(max(offset, 0), len(b.content))
	line := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	}) - 1
	return types.Position{Line: line, Col: offset - b.lineStarts[line]}
}

// OffsetOf converts a line/column to an offset, clamping both.
func (b *RuneBuffer) OffsetOf(pos types.Position) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	line := min(max(pos.Line, 0), len(b.lineStarts)-1)
	start := b.lineStarts[line]
	end := len(b.content)
	if line+1 < len(b.lineStarts) {
		end = b.lineStarts[line+1] - 1
	}
	return min(start+max(pos.Col, 0), end)
}

func (b *RuneBuffer) AddListener(l Listener) ListenerID {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	b.nextID++
	b.listeners = append(b.listeners, listenerEntry{id: b.nextID, l: l})
	return b.nextID
}

func (b *RuneBuffer) RemoveListener(id ListenerID) {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	for i, e := range b.listeners {
		if e.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

func (b *RuneBuffer) snapshotListeners() []Listener {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	out := make([]Listener, len(b.listeners))
	for i, e := range b.listeners {
		out[i] = e.l
	}
	return out
}

// reindex rebuilds lineStarts. Caller holds mu.
func (b *RuneBuffer) reindex() {
	starts := b.lineStarts[:0]
	starts = append(starts, 0)
	for i, r := range b.content {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	b.lineStarts = starts
}

var _ Buffer = (*RuneBuffer)(nil)
