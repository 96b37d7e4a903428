package compiler

import (
	"github.com/ember-lang/ember/internal/bytecode"
	"github.com/ember-lang/ember/internal/token"
)

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope pops every local declared in the closing scope, one OP_POP per
// slot so the runtime stack shrinks in step with the locals table.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitByte(bytecode.OP_POP)
		c.localCount--
	}
}

// parseVariable consumes an identifier and declares it. Locals live on the
// stack and need no constant; globals are referenced through an interned
// name in the constant pool.
func (c *Compiler) parseVariable(msg string) uint16 {
	c.consume(token.Ident, msg)
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

// identifierConstant allocates a constant-pool entry for the name and
// returns its full 16-bit index.
func (c *Compiler) identifierConstant(name token.Token) uint16 {
	return c.makeConstant(c.pool.InternValue(name.Lexeme))
}

// declareVariable registers a new local in the current scope. Globals are
// late-bound by name and need no declaration.
func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.initialized && l.depth < c.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if c.localCount == maxLocals {
		c.error("Too many local variables in scope.")
		return
	}
	c.locals[c.localCount] = local{name: name, depth: c.scopeDepth}
	c.localCount++
}

// markInitialized completes the two-phase declaration: the local becomes
// readable only once its initializer has been compiled, which is what
// makes `var x = x;` a compile error.
func (c *Compiler) markInitialized() {
	c.locals[c.localCount-1].initialized = true
}

func (c *Compiler) defineVariable(global uint16) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitVarWidth(bytecode.OP_DEFINE_GLOBAL, bytecode.OP_DEFINE_GLOBAL_16, global)
}

// resolveLocal scans from the innermost declaration outward; the first
// match wins, which is how inner scopes shadow outer ones. Returns -1 when
// the name is not a local.
func (c *Compiler) resolveLocal(name token.Token) int {
	for i := c.localCount - 1; i >= 0; i-- {
		l := &c.locals[i]
		if identifiersEqual(name, l.name) {
			if !l.initialized {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func identifiersEqual(a, b token.Token) bool {
	return a.Lexeme == b.Lexeme
}
