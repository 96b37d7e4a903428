package bytecode

// Bytecode operations, one byte each. The _16 forms take a big-endian
// 16-bit operand where their narrow counterpart takes a single byte.
const (
	OP_CONST byte = iota
	OP_CONST_16
	OP_NULL
	OP_TRUE
	OP_FALSE
	OP_POP

	OP_GET_LOCAL
	OP_GET_LOCAL_16
	OP_SET_LOCAL
	OP_SET_LOCAL_16
	OP_GET_GLOBAL
	OP_GET_GLOBAL_16
	OP_DEFINE_GLOBAL
	OP_DEFINE_GLOBAL_16
	OP_SET_GLOBAL
	OP_SET_GLOBAL_16

	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_NOT
	OP_NEG

	OP_PRINT
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP

	// Reserved for functions and closures. The disassembler decodes these;
	// the compiler never emits them.
	OP_CALL
	OP_CLOSURE

	OP_RETURN
)
