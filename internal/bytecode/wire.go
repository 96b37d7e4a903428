package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/ember-lang/ember/internal/value"
)

// cborEncMode uses canonical mode so equal chunks serialize to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireConst struct {
	Kind int     `cbor:"k"`
	Bool bool    `cbor:"b,omitempty"`
	Num  float64 `cbor:"n,omitempty"`
	Str  string  `cbor:"s,omitempty"`
}

type wireChunk struct {
	Code   []byte      `cbor:"code"`
	Lines  []int       `cbor:"lines"`
	Consts []wireConst `cbor:"consts"`
}

// MarshalChunk serializes a chunk to CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	w := wireChunk{
		Code:   c.Code,
		Lines:  c.Lines,
		Consts: make([]wireConst, len(c.Consts)),
	}
	for i, v := range c.Consts {
		wc := wireConst{Kind: int(v.Kind)}
		switch v.Kind {
		case value.KindNull:
		case value.KindBool:
			wc.Bool = v.B
		case value.KindNumber:
			wc.Num = v.Num
		case value.KindString:
			wc.Str = v.Str.S
		default:
			return nil, fmt.Errorf("bytecode: unsupported constant kind %d", v.Kind)
		}
		w.Consts[i] = wc
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalChunk deserializes a chunk from CBOR bytes, re-interning string
// constants against the supplied pool.
func UnmarshalChunk(data []byte, pool *value.Pool) (*Chunk, error) {
	var w wireChunk
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if len(w.Code) != len(w.Lines) {
		return nil, fmt.Errorf("bytecode: corrupt chunk: %d code bytes, %d line entries", len(w.Code), len(w.Lines))
	}
	c := &Chunk{
		Code:   w.Code,
		Lines:  w.Lines,
		Consts: make([]value.Value, len(w.Consts)),
	}
	for i, wc := range w.Consts {
		switch value.Kind(wc.Kind) {
		case value.KindNull:
			c.Consts[i] = value.Null()
		case value.KindBool:
			c.Consts[i] = value.Bool(wc.Bool)
		case value.KindNumber:
			c.Consts[i] = value.Num(wc.Num)
		case value.KindString:
			c.Consts[i] = pool.InternValue(wc.Str)
		default:
			return nil, fmt.Errorf("bytecode: unknown constant kind %d", wc.Kind)
		}
	}
	return c, nil
}
