package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditConvert(t *testing.T) {
	ins := Insert(5, "abc")
	assert.Equal(t, 4, ins.Convert(4))
	assert.Equal(t, 8, ins.Convert(5))
	assert.Equal(t, 13, ins.Convert(10))

	rem := Remove(5, "abc")
	assert.Equal(t, 4, rem.Convert(4))
	assert.Equal(t, 5, rem.Convert(6))
	assert.Equal(t, 7, rem.Convert(10))
}

func TestEditRevertUndoesConvertOutsideEdit(t *testing.T) {
	edits := []Edit{Insert(0, "xx"), Remove(10, "yyy")}
	r := R(20, 30)
	assert.Equal(t, r, RevertAll(edits, ConvertAll(edits, r)))
}

func TestEditLenCountsRunes(t *testing.T) {
	assert.Equal(t, 2, Insert(0, "⊢λ").Len())
}
