// Package types holds small value types shared by the UI packages.
package types

// Position is a 0-based line and rune column within a buffer.
type Position struct {
	Line int
	Col  int
}

// Less orders positions by line, then column.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Col < o.Col
}
