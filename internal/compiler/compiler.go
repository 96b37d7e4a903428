package compiler

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/ember-lang/ember/internal/bytecode"
	"github.com/ember-lang/ember/internal/lexer"
	"github.com/ember-lang/ember/internal/token"
	"github.com/ember-lang/ember/internal/value"
)

// maxLocals bounds the locals table. Slot operands fit in one byte at this
// capacity, so the 16-bit local opcodes are never emitted by the compiler.
const maxLocals = 256

type local struct {
	name  token.Token
	depth int
	// initialized flips once the declaration's initializer has run. An
	// uninitialized local is visible for collision checks but reading it
	// is a compile error.
	initialized bool
}

// Compiler is a single-pass parser and code generator. It owns its scanner
// handle, so independent compilations on different chunks may run
// concurrently. All state is scoped to one Compile call.
type Compiler struct {
	scanner *lexer.Lexer
	chunk   *bytecode.Chunk
	pool    *value.Pool
	stderr  io.Writer

	current   token.Token
	previous  token.Token
	hadError  bool
	panicMode bool
	errs      *multierror.Error

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	// openJumps counts emitted forward jumps not yet patched; it must be
	// zero when Compile returns.
	openJumps int
}

// New constructs a compiler that interns strings through pool and writes
// diagnostics to stderr (os.Stderr when nil).
func New(pool *value.Pool, stderr io.Writer) *Compiler {
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Compiler{pool: pool, stderr: stderr}
}

// Compile translates source into chunk. It returns false if any diagnostic
// was emitted, in which case the chunk contents are undefined.
func (c *Compiler) Compile(source string, chunk *bytecode.Chunk) bool {
	c.scanner = lexer.New(source)
	c.chunk = chunk
	c.hadError = false
	c.panicMode = false
	c.errs = nil
	c.localCount = 0
	c.scopeDepth = 0
	c.openJumps = 0

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.emitReturn()

	if c.openJumps != 0 {
		panic(fmt.Sprintf("compiler: %d unpatched jumps", c.openJumps))
	}
	return !c.hadError
}

// Err returns every reported diagnostic as a single error, or nil.
func (c *Compiler) Err() error {
	return c.errs.ErrorOrNil()
}

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.ScanToken()
		if c.current.Type != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) consume(t token.Type, msg string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) errorAtCurrent(msg string) {
	c.errorAt(c.current, msg)
}

func (c *Compiler) error(msg string) {
	c.errorAt(c.previous, msg)
}

// errorAt records a diagnostic. While panicking, the failure still counts
// but the message is suppressed until synchronize re-anchors the parser.
func (c *Compiler) errorAt(tok token.Token, msg string) {
	c.hadError = true
	if c.panicMode {
		return
	}
	c.panicMode = true

	var where string
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.Error:
		// lexical errors already carry their position in msg
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(c.stderr, "[line %d] Error%s: %s\n", tok.Line, where, msg)
	c.errs = multierror.Append(c.errs, fmt.Errorf("[line %d] Error%s: %s", tok.Line, where, msg))
}

// synchronize skips tokens until a statement boundary so one mistake does
// not cascade into a wall of diagnostics.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.Semicolon {
			return
		}
		switch c.current.Type {
		case token.Class, token.Fn, token.Var, token.For,
			token.If, token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}
