package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ember-lang/ember/internal/bytecode"
	"github.com/ember-lang/ember/internal/value"
)

const defaultMaxStack = 1024

// RuntimeError is a source-aware execution error.
type RuntimeError struct {
	Message string
	Line    int
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[line %d] runtime error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("runtime error: %s", e.Message)
}

// VM is a stack-based interpreter for a single chunk. It executes the full
// opcode inventory, including the 16-bit variants that hand-built or
// deserialized chunks may carry.
type VM struct {
	stack    []value.Value
	globals  map[*value.Obj]value.Value
	pool     *value.Pool
	stdout   io.Writer
	trace    bool
	maxStack int
}

// New constructs a VM sharing the given interning pool. Output goes to
// stdout (os.Stdout when nil).
func New(pool *value.Pool, stdout io.Writer) *VM {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &VM{
		stack:    make([]value.Value, 0, 256),
		globals:  make(map[*value.Obj]value.Value),
		pool:     pool,
		stdout:   stdout,
		maxStack: defaultMaxStack,
	}
}

// SetTrace enables per-instruction disassembly through the debug logger.
func (vm *VM) SetTrace(on bool) {
	vm.trace = on
}

// Interpret executes a chunk to its OP_RETURN. Globals persist across
// calls, which is what lets a REPL accumulate state.
func (vm *VM) Interpret(chunk *bytecode.Chunk) error {
	vm.stack = vm.stack[:0]
	code := chunk.Code

	for ip := 0; ip < len(code); {
		if vm.trace {
			vm.traceInstruction(chunk, ip)
		}
		line := chunk.Lines[ip]
		op := code[ip]
		ip++

		switch op {
		case bytecode.OP_CONST:
			idx := uint16(code[ip])
			ip++
			if err := vm.push(chunk.Consts[idx], line); err != nil {
				return err
			}
		case bytecode.OP_CONST_16:
			idx := readU16(code, &ip)
			if err := vm.push(chunk.Consts[idx], line); err != nil {
				return err
			}
		case bytecode.OP_NULL:
			if err := vm.push(value.Null(), line); err != nil {
				return err
			}
		case bytecode.OP_TRUE:
			if err := vm.push(value.Bool(true), line); err != nil {
				return err
			}
		case bytecode.OP_FALSE:
			if err := vm.push(value.Bool(false), line); err != nil {
				return err
			}
		case bytecode.OP_POP:
			vm.pop()

		case bytecode.OP_GET_LOCAL:
			slot := int(code[ip])
			ip++
			if err := vm.push(vm.stack[slot], line); err != nil {
				return err
			}
		case bytecode.OP_GET_LOCAL_16:
			slot := int(readU16(code, &ip))
			if err := vm.push(vm.stack[slot], line); err != nil {
				return err
			}
		case bytecode.OP_SET_LOCAL:
			slot := int(code[ip])
			ip++
			vm.stack[slot] = vm.peek(0)
		case bytecode.OP_SET_LOCAL_16:
			slot := int(readU16(code, &ip))
			vm.stack[slot] = vm.peek(0)

		case bytecode.OP_GET_GLOBAL, bytecode.OP_GET_GLOBAL_16:
			name := vm.constName(chunk, code, &ip, op == bytecode.OP_GET_GLOBAL_16)
			v, ok := vm.globals[name]
			if !ok {
				return vm.errorf(line, "Undefined variable '%s'.", name.S)
			}
			if err := vm.push(v, line); err != nil {
				return err
			}
		case bytecode.OP_DEFINE_GLOBAL, bytecode.OP_DEFINE_GLOBAL_16:
			name := vm.constName(chunk, code, &ip, op == bytecode.OP_DEFINE_GLOBAL_16)
			vm.globals[name] = vm.pop()
		case bytecode.OP_SET_GLOBAL, bytecode.OP_SET_GLOBAL_16:
			name := vm.constName(chunk, code, &ip, op == bytecode.OP_SET_GLOBAL_16)
			if _, ok := vm.globals[name]; !ok {
				return vm.errorf(line, "Undefined variable '%s'.", name.S)
			}
			// Assignment is an expression; the value stays on the stack.
			vm.globals[name] = vm.peek(0)

		case bytecode.OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			if err := vm.push(value.Bool(value.Equal(a, b)), line); err != nil {
				return err
			}
		case bytecode.OP_GREATER:
			if err := vm.binaryCompare(line, func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case bytecode.OP_LESS:
			if err := vm.binaryCompare(line, func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case bytecode.OP_ADD:
			if err := vm.add(line); err != nil {
				return err
			}
		case bytecode.OP_SUB:
			if err := vm.binaryNum(line, func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case bytecode.OP_MUL:
			if err := vm.binaryNum(line, func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case bytecode.OP_DIV:
			if err := vm.binaryNum(line, func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}
		case bytecode.OP_NOT:
			v := vm.pop()
			if err := vm.push(value.Bool(!value.Truthy(v)), line); err != nil {
				return err
			}
		case bytecode.OP_NEG:
			if vm.peek(0).Kind != value.KindNumber {
				return vm.errorf(line, "Operand must be a number.")
			}
			v := vm.pop()
			if err := vm.push(value.Num(-v.Num), line); err != nil {
				return err
			}

		case bytecode.OP_PRINT:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case bytecode.OP_JUMP:
			off := readU16(code, &ip)
			ip += int(off)
		case bytecode.OP_JUMP_IF_FALSE:
			off := readU16(code, &ip)
			if !value.Truthy(vm.peek(0)) {
				ip += int(off)
			}
		case bytecode.OP_LOOP:
			off := readU16(code, &ip)
			ip -= int(off)

		case bytecode.OP_CALL, bytecode.OP_CLOSURE:
			return vm.errorf(line, "Functions are not supported.")

		case bytecode.OP_RETURN:
			return nil

		default:
			return vm.errorf(line, "Unknown opcode 0x%02X.", op)
		}
	}
	return nil
}

func (vm *VM) constName(chunk *bytecode.Chunk, code []byte, ip *int, wide bool) *value.Obj {
	var idx uint16
	if wide {
		idx = readU16(code, ip)
	} else {
		idx = uint16(code[*ip])
		*ip = *ip + 1
	}
	return chunk.Consts[idx].Str
}

func (vm *VM) add(line int) error {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.Kind == value.KindNumber && b.Kind == value.KindNumber:
		vm.pop()
		vm.pop()
		return vm.push(value.Num(a.Num+b.Num), line)
	case a.Kind == value.KindString && b.Kind == value.KindString:
		vm.pop()
		vm.pop()
		return vm.push(vm.pool.InternValue(a.Str.S+b.Str.S), line)
	default:
		return vm.errorf(line, "Operands must be two numbers or two strings.")
	}
}

func (vm *VM) binaryNum(line int, f func(a, b float64) float64) error {
	if vm.peek(0).Kind != value.KindNumber || vm.peek(1).Kind != value.KindNumber {
		return vm.errorf(line, "Operands must be numbers.")
	}
	b := vm.pop()
	a := vm.pop()
	return vm.push(value.Num(f(a.Num, b.Num)), line)
}

func (vm *VM) binaryCompare(line int, f func(a, b float64) bool) error {
	if vm.peek(0).Kind != value.KindNumber || vm.peek(1).Kind != value.KindNumber {
		return vm.errorf(line, "Operands must be numbers.")
	}
	b := vm.pop()
	a := vm.pop()
	return vm.push(value.Bool(f(a.Num, b.Num)), line)
}

func (vm *VM) push(v value.Value, line int) error {
	if len(vm.stack) >= vm.maxStack {
		return vm.errorf(line, "Stack overflow.")
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) errorf(line int, format string, args ...interface{}) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Line: line}
}

func (vm *VM) traceInstruction(chunk *bytecode.Chunk, ip int) {
	var sb strings.Builder
	if _, err := bytecode.NewDisassembler(&sb).DisassembleInstruction(chunk, ip); err != nil {
		return
	}
	logrus.WithField("stack", len(vm.stack)).Debug(strings.TrimRight(sb.String(), "\n"))
}

func readU16(code []byte, ip *int) uint16 {
	hi := code[*ip]
	lo := code[*ip+1]
	*ip += 2
	return uint16(hi)<<8 | uint16(lo)
}
