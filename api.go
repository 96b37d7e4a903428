// Package ember embeds the Ember scripting language: a single-pass
// bytecode compiler and the stack machine that runs its chunks.
package ember

import (
	"io"

	"github.com/ember-lang/ember/internal/bytecode"
	"github.com/ember-lang/ember/internal/compiler"
	"github.com/ember-lang/ember/internal/value"
	"github.com/ember-lang/ember/internal/vm"
)

// Chunk is an opaque handle to compiled bytecode.
type Chunk struct {
	c *bytecode.Chunk
}

// Options tune an Engine.
type Options struct {
	// Stderr receives compiler diagnostics. Defaults to os.Stderr.
	Stderr io.Writer
	// Stdout receives print output. Defaults to os.Stdout.
	Stdout io.Writer
	// Trace enables per-instruction debug logging in the VM.
	Trace bool
}

// Option mutates Options.
type Option func(*Options)

// WithStderr routes compiler diagnostics to w.
func WithStderr(w io.Writer) Option {
	return func(o *Options) { o.Stderr = w }
}

// WithStdout routes print output to w.
func WithStdout(w io.Writer) Option {
	return func(o *Options) { o.Stdout = w }
}

// WithTrace enables VM instruction tracing.
func WithTrace(on bool) Option {
	return func(o *Options) { o.Trace = on }
}

// Engine compiles and runs scripts against one shared global environment
// and interning pool, which is what lets a REPL accumulate state across
// inputs.
type Engine struct {
	pool *value.Pool
	comp *compiler.Compiler
	vm   *vm.VM
}

// New constructs an engine.
func New(opts ...Option) *Engine {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	pool := value.NewPool()
	e := &Engine{
		pool: pool,
		comp: compiler.New(pool, o.Stderr),
		vm:   vm.New(pool, o.Stdout),
	}
	e.vm.SetTrace(o.Trace)
	return e
}

// SetTrace toggles VM instruction tracing.
func (e *Engine) SetTrace(on bool) {
	e.vm.SetTrace(on)
}

// Compile translates source into a chunk. On failure the returned error
// aggregates every diagnostic; the chunk is nil and must not be run.
func (e *Engine) Compile(source string) (*Chunk, error) {
	chunk := bytecode.New()
	if !e.comp.Compile(source, chunk) {
		return nil, e.comp.Err()
	}
	return &Chunk{c: chunk}, nil
}

// Run compiles and executes source.
func (e *Engine) Run(source string) error {
	chunk, err := e.Compile(source)
	if err != nil {
		return err
	}
	return e.vm.Interpret(chunk.c)
}

// RunChunk executes a previously compiled or loaded chunk.
func (e *Engine) RunChunk(chunk *Chunk) error {
	return e.vm.Interpret(chunk.c)
}

// Disassemble renders a chunk as an assembly-style dump.
func (e *Engine) Disassemble(name string, chunk *Chunk) (string, error) {
	return bytecode.Disassemble(name, chunk.c)
}

// MarshalChunk serializes a chunk for later execution.
func (e *Engine) MarshalChunk(chunk *Chunk) ([]byte, error) {
	return bytecode.MarshalChunk(chunk.c)
}

// UnmarshalChunk loads a serialized chunk, re-interning its string
// constants against this engine's pool.
func (e *Engine) UnmarshalChunk(data []byte) (*Chunk, error) {
	c, err := bytecode.UnmarshalChunk(data, e.pool)
	if err != nil {
		return nil, err
	}
	return &Chunk{c: c}, nil
}
