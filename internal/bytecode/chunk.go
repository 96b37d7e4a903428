package bytecode

import "github.com/ember-lang/ember/internal/value"

// Chunk is a compiled bytecode sequence with its constant pool. Lines is
// kept parallel to Code: Lines[i] is the source line of the byte Code[i].
type Chunk struct {
	Code   []byte
	Lines  []int
	Consts []value.Value
}

// New constructs an empty chunk.
func New() *Chunk {
	return &Chunk{}
}

// Write appends one byte with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConst appends a constant and returns its index. No deduplication is
// performed; identifier strings are already deduplicated at the object
// layer by the interning pool.
func (c *Chunk) AddConst(v value.Value) int {
	c.Consts = append(c.Consts, v)
	return len(c.Consts) - 1
}
