package bytecode

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ember-lang/ember/internal/value"
)

// Disassembler formats bytecode as a readable assembly-style dump.
type Disassembler struct {
	w io.Writer
}

// NewDisassembler constructs a disassembler that writes to w.
func NewDisassembler(w io.Writer) *Disassembler {
	return &Disassembler{w: w}
}

// DisassembleChunk emits a header followed by one line per instruction.
func (d *Disassembler) DisassembleChunk(name string, chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("nil chunk")
	}
	fmt.Fprintf(d.w, "== %s ==\n", name)
	for ip := 0; ip < len(chunk.Code); {
		next, err := d.DisassembleInstruction(chunk, ip)
		if err != nil {
			return err
		}
		ip = next
	}
	return nil
}

// DisassembleInstruction emits a single instruction line and returns the
// offset of the following instruction.
func (d *Disassembler) DisassembleInstruction(chunk *Chunk, offset int) (int, error) {
	ip := offset
	op := chunk.Code[ip]
	ip++

	lineStr := "-"
	if offset < len(chunk.Lines) {
		lineStr = strconv.Itoa(chunk.Lines[offset])
		if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
			lineStr = "|"
		}
	}

	detail, err := d.decodeOperands(op, chunk, offset, &ip)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(d.w, "%04d %4s %-20s", offset, lineStr, opName(op))
	if detail != "" {
		fmt.Fprintf(d.w, " %s", detail)
	}
	fmt.Fprintln(d.w)
	return ip, nil
}

func (d *Disassembler) decodeOperands(op byte, chunk *Chunk, offset int, ip *int) (string, error) {
	code := chunk.Code
	switch op {
	case OP_CONST, OP_CLOSURE:
		idx, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return constDetail(chunk, uint16(idx))
	case OP_CONST_16:
		idx, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return constDetail(chunk, idx)
	case OP_GET_GLOBAL, OP_SET_GLOBAL, OP_DEFINE_GLOBAL:
		idx, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return nameDetail(chunk, uint16(idx))
	case OP_GET_GLOBAL_16, OP_SET_GLOBAL_16, OP_DEFINE_GLOBAL_16:
		idx, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return nameDetail(chunk, idx)
	case OP_GET_LOCAL, OP_SET_LOCAL, OP_CALL:
		slot, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(slot)), nil
	case OP_GET_LOCAL_16, OP_SET_LOCAL_16:
		slot, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(slot)), nil
	case OP_JUMP, OP_JUMP_IF_FALSE:
		off, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d ; -> %d", off, offset+3+int(off)), nil
	case OP_LOOP:
		off, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d ; -> %d", off, offset+3-int(off)), nil
	default:
		return "", nil
	}
}

func constDetail(chunk *Chunk, idx uint16) (string, error) {
	if int(idx) >= len(chunk.Consts) {
		return "", fmt.Errorf("const index out of range: %d", idx)
	}
	return fmt.Sprintf("%d ; const[%d]=%s", idx, idx, formatConst(chunk.Consts[idx])), nil
}

func nameDetail(chunk *Chunk, idx uint16) (string, error) {
	if int(idx) >= len(chunk.Consts) {
		return "", fmt.Errorf("const index out of range: %d", idx)
	}
	return fmt.Sprintf("%d ; name=%s", idx, formatConst(chunk.Consts[idx])), nil
}

func opName(op byte) string {
	switch op {
	case OP_CONST:
		return "OP_CONST"
	case OP_CONST_16:
		return "OP_CONST_16"
	case OP_NULL:
		return "OP_NULL"
	case OP_TRUE:
		return "OP_TRUE"
	case OP_FALSE:
		return "OP_FALSE"
	case OP_POP:
		return "OP_POP"
	case OP_GET_LOCAL:
		return "OP_GET_LOCAL"
	case OP_GET_LOCAL_16:
		return "OP_GET_LOCAL_16"
	case OP_SET_LOCAL:
		return "OP_SET_LOCAL"
	case OP_SET_LOCAL_16:
		return "OP_SET_LOCAL_16"
	case OP_GET_GLOBAL:
		return "OP_GET_GLOBAL"
	case OP_GET_GLOBAL_16:
		return "OP_GET_GLOBAL_16"
	case OP_DEFINE_GLOBAL:
		return "OP_DEFINE_GLOBAL"
	case OP_DEFINE_GLOBAL_16:
		return "OP_DEFINE_GLOBAL_16"
	case OP_SET_GLOBAL:
		return "OP_SET_GLOBAL"
	case OP_SET_GLOBAL_16:
		return "OP_SET_GLOBAL_16"
	case OP_EQUAL:
		return "OP_EQUAL"
	case OP_GREATER:
		return "OP_GREATER"
	case OP_LESS:
		return "OP_LESS"
	case OP_ADD:
		return "OP_ADD"
	case OP_SUB:
		return "OP_SUB"
	case OP_MUL:
		return "OP_MUL"
	case OP_DIV:
		return "OP_DIV"
	case OP_NOT:
		return "OP_NOT"
	case OP_NEG:
		return "OP_NEG"
	case OP_PRINT:
		return "OP_PRINT"
	case OP_JUMP:
		return "OP_JUMP"
	case OP_JUMP_IF_FALSE:
		return "OP_JUMP_IF_FALSE"
	case OP_LOOP:
		return "OP_LOOP"
	case OP_CALL:
		return "OP_CALL"
	case OP_CLOSURE:
		return "OP_CLOSURE"
	case OP_RETURN:
		return "OP_RETURN"
	default:
		return fmt.Sprintf("OP_0x%02X", op)
	}
}

func readU8(code []byte, ip *int) (byte, error) {
	if *ip >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	val := code[*ip]
	*ip = *ip + 1
	return val, nil
}

func readU16(code []byte, ip *int) (uint16, error) {
	if *ip+1 >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	hi := code[*ip]
	lo := code[*ip+1]
	*ip += 2
	return uint16(hi)<<8 | uint16(lo), nil
}

func formatConst(v value.Value) string {
	if v.Kind == value.KindString {
		return strconv.Quote(v.Str.S)
	}
	return v.String()
}

// Disassemble is a convenience wrapper returning the dump as a string.
func Disassemble(name string, chunk *Chunk) (string, error) {
	var sb strings.Builder
	if err := NewDisassembler(&sb).DisassembleChunk(name, chunk); err != nil {
		return "", err
	}
	return sb.String(), nil
}
