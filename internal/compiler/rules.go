package compiler

import (
	"strconv"

	"github.com/ember-lang/ember/internal/bytecode"
	"github.com/ember-lang/ember/internal/token"
	"github.com/ember-lang/ember/internal/value"
)

type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LParen:       {(*Compiler).grouping, nil, precNone},
		token.Minus:        {(*Compiler).unary, (*Compiler).binary, precTerm},
		token.Plus:         {nil, (*Compiler).binary, precTerm},
		token.Slash:        {nil, (*Compiler).binary, precFactor},
		token.Star:         {nil, (*Compiler).binary, precFactor},
		token.Bang:         {(*Compiler).unary, nil, precNone},
		token.NotEqual:     {nil, (*Compiler).binary, precEquality},
		token.Equal:        {nil, (*Compiler).binary, precEquality},
		token.Greater:      {nil, (*Compiler).binary, precComparison},
		token.GreaterEqual: {nil, (*Compiler).binary, precComparison},
		token.Less:         {nil, (*Compiler).binary, precComparison},
		token.LessEqual:    {nil, (*Compiler).binary, precComparison},
		token.Ident:        {(*Compiler).variable, nil, precNone},
		token.String:       {(*Compiler).str, nil, precNone},
		token.Number:       {(*Compiler).number, nil, precNone},
		token.And:          {nil, (*Compiler).and, precAnd},
		token.Or:           {nil, (*Compiler).or, precOr},
		token.False:        {(*Compiler).literal, nil, precNone},
		token.Null:         {(*Compiler).literal, nil, precNone},
		token.True:         {(*Compiler).literal, nil, precNone},
	}
}

// getRule returns the rule for a token kind; kinds absent from the table
// parse as neither prefix nor infix.
func getRule(t token.Type) parseRule {
	return rules[t]
}

// parsePrecedence is the Pratt driver: one prefix handler for the token
// just consumed, then infix handlers while the lookahead binds at least as
// tightly as p.
func (c *Compiler) parsePrecedence(p precedence) {
	c.advance()
	rule := getRule(c.previous.Type)
	if rule.prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := p <= precAssignment
	rule.prefix(c, canAssign)

	for p <= getRule(c.current.Type).prec {
		c.advance()
		getRule(c.previous.Type).infix(c, canAssign)
	}

	// A leftover '=' here means the left-hand side was not assignable,
	// e.g. `a + b = c;`.
	if canAssign && c.match(token.Assign) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	op := c.previous.Type

	// Compile the operand first; the operator applies to its result.
	c.parsePrecedence(precUnary)

	switch op {
	case token.Minus:
		c.emitByte(bytecode.OP_NEG)
	case token.Bang:
		c.emitByte(bytecode.OP_NOT)
	}
}

func (c *Compiler) binary(_ bool) {
	op := c.previous.Type
	rule := getRule(op)

	// One level higher keeps binary operators left-associative.
	c.parsePrecedence(rule.prec + 1)

	switch op {
	case token.NotEqual:
		c.emitBytes(bytecode.OP_EQUAL, bytecode.OP_NOT)
	case token.Equal:
		c.emitByte(bytecode.OP_EQUAL)
	case token.Greater:
		c.emitByte(bytecode.OP_GREATER)
	case token.GreaterEqual:
		c.emitBytes(bytecode.OP_LESS, bytecode.OP_NOT)
	case token.Less:
		c.emitByte(bytecode.OP_LESS)
	case token.LessEqual:
		c.emitBytes(bytecode.OP_GREATER, bytecode.OP_NOT)
	case token.Plus:
		c.emitByte(bytecode.OP_ADD)
	case token.Minus:
		c.emitByte(bytecode.OP_SUB)
	case token.Star:
		c.emitByte(bytecode.OP_MUL)
	case token.Slash:
		c.emitByte(bytecode.OP_DIV)
	}
}

func (c *Compiler) literal(_ bool) {
	switch c.previous.Type {
	case token.False:
		c.emitByte(bytecode.OP_FALSE)
	case token.Null:
		c.emitByte(bytecode.OP_NULL)
	case token.True:
		c.emitByte(bytecode.OP_TRUE)
	}
}

func (c *Compiler) number(_ bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.Num(n))
}

func (c *Compiler) str(_ bool) {
	// Strip the surrounding quotes and intern the content.
	lexeme := c.previous.Lexeme
	c.emitConstant(c.pool.InternValue(lexeme[1 : len(lexeme)-1]))
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

// namedVariable compiles a read of name, or a write when an '=' follows in
// assignment position. Locals resolve to stack slots, everything else to a
// constant-pool entry holding the interned name.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var arg uint16
	var getOp, getWide, setOp, setWide byte
	if slot := c.resolveLocal(name); slot >= 0 {
		arg = uint16(slot)
		getOp, getWide = bytecode.OP_GET_LOCAL, bytecode.OP_GET_LOCAL_16
		setOp, setWide = bytecode.OP_SET_LOCAL, bytecode.OP_SET_LOCAL_16
	} else {
		arg = c.identifierConstant(name)
		getOp, getWide = bytecode.OP_GET_GLOBAL, bytecode.OP_GET_GLOBAL_16
		setOp, setWide = bytecode.OP_SET_GLOBAL, bytecode.OP_SET_GLOBAL_16
	}

	if canAssign && c.match(token.Assign) {
		c.expression()
		c.emitVarWidth(setOp, setWide, arg)
	} else {
		c.emitVarWidth(getOp, getWide, arg)
	}
}

// and short-circuits: if the left operand is falsy it stays on the stack
// as the result, otherwise it is popped and replaced by the right operand.
func (c *Compiler) and(_ bool) {
	endJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emitByte(bytecode.OP_POP)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(_ bool) {
	elseJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	endJump := c.emitJump(bytecode.OP_JUMP)

	c.patchJump(elseJump)
	c.emitByte(bytecode.OP_POP)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}
