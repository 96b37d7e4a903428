package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ember-lang/ember/internal/bytecode"
	"github.com/ember-lang/ember/internal/compiler"
	"github.com/ember-lang/ember/internal/value"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	pool := value.NewPool()
	var stderr bytes.Buffer
	c := compiler.New(pool, &stderr)
	chunk := bytecode.New()
	if !c.Compile(src, chunk) {
		t.Fatalf("compile failed:\n%s", stderr.String())
	}
	var out bytes.Buffer
	machine := New(pool, &out)
	err := machine.Interpret(chunk)
	return out.String(), err
}

func expectOutput(t *testing.T, src, want string) {
	t.Helper()
	got, err := run(t, src)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if got != want {
		t.Fatalf("source %q: expected output %q, got %q", src, want, got)
	}
}

func TestArithmetic(t *testing.T) {
	expectOutput(t, "print 1 + 2 * 3;", "7\n")
	expectOutput(t, "print (1 + 2) * 3;", "9\n")
	expectOutput(t, "print 10 - 4 - 3;", "3\n")
	expectOutput(t, "print 7 / 2;", "3.5\n")
	expectOutput(t, "print -(3 + 4);", "-7\n")
}

func TestStringConcat(t *testing.T) {
	expectOutput(t, `print "foo" + "bar";`, "foobar\n")
}

func TestComparisons(t *testing.T) {
	expectOutput(t, "print 1 < 2;", "true\n")
	expectOutput(t, "print 2 <= 1;", "false\n")
	expectOutput(t, "print 2 > 1;", "true\n")
	expectOutput(t, "print 1 >= 2;", "false\n")
	expectOutput(t, "print 1 == 1;", "true\n")
	expectOutput(t, "print 1 != 1;", "false\n")
	expectOutput(t, `print "a" == "a";`, "true\n")
	expectOutput(t, `print 1 == "1";`, "false\n")
	expectOutput(t, "print null == null;", "true\n")
}

func TestTruthiness(t *testing.T) {
	expectOutput(t, "print !null;", "true\n")
	expectOutput(t, "print !false;", "true\n")
	expectOutput(t, "print !0;", "false\n")
	expectOutput(t, `print !"";`, "false\n")
}

func TestGlobals(t *testing.T) {
	expectOutput(t, "var x = 10; print x;", "10\n")
	expectOutput(t, "var x; print x;", "null\n")
	expectOutput(t, "var x = 1; x = x + 1; print x;", "2\n")
	// assignment is an expression yielding the assigned value
	expectOutput(t, "var x = 1; print x = 5;", "5\n")
}

func TestLocals(t *testing.T) {
	expectOutput(t, "{ var x = 1; print x; }", "1\n")
	expectOutput(t, "{ var a = 1; { var a = 2; print a; } print a; }", "2\n1\n")
	expectOutput(t, "{ var a = 1; var b = a + 1; print b; }", "2\n")
	expectOutput(t, "var g = 10; { var l = g + 5; print l; }", "15\n")
}

func TestIfElse(t *testing.T) {
	expectOutput(t, "if (true) print 1; else print 2;", "1\n")
	expectOutput(t, "if (false) print 1; else print 2;", "2\n")
	expectOutput(t, "if (false) print 1;", "")
	expectOutput(t, "if (1 < 2) if (true) print 3;", "3\n")
}

func TestLogicalOperators(t *testing.T) {
	expectOutput(t, "print 1 and 2;", "2\n")
	expectOutput(t, "print false and 2;", "false\n")
	expectOutput(t, "print null and 2;", "null\n")
	expectOutput(t, "print 1 or 2;", "1\n")
	expectOutput(t, `print false or "x";`, "x\n")
	// the right operand must not evaluate when short-circuited
	expectOutput(t, "var n = 0; false and (n = 1); print n;", "0\n")
	expectOutput(t, "var n = 0; true or (n = 1); print n;", "0\n")
}

func TestWhile(t *testing.T) {
	expectOutput(t, "var i = 0; while (i < 3) { print i; i = i + 1; }", "0\n1\n2\n")
	expectOutput(t, "while (false) print 1;", "")
}

func TestFor(t *testing.T) {
	expectOutput(t, "for (var i = 0; i < 3; i = i + 1) print i;", "0\n1\n2\n")
	expectOutput(t, "var i = 0; for (; i < 2; i = i + 1) print i;", "0\n1\n")
	expectOutput(t, "for (var i = 3; i > 0; i = i - 1) print i;", "3\n2\n1\n")
	// fibonacci, the classic smoke test
	expectOutput(t, `
var a = 0;
var b = 1;
for (var n = 0; n < 6; n = n + 1) {
  print a;
  var next = a + b;
  a = b;
  b = next;
}
`, "0\n1\n1\n2\n3\n5\n")
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	pool := value.NewPool()
	var stderr bytes.Buffer
	c := compiler.New(pool, &stderr)
	var out bytes.Buffer
	machine := New(pool, &out)

	first := bytecode.New()
	if !c.Compile("var counter = 41;", first) {
		t.Fatalf("compile failed:\n%s", stderr.String())
	}
	if err := machine.Interpret(first); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := bytecode.New()
	if !c.Compile("print counter + 1;", second) {
		t.Fatalf("compile failed:\n%s", stderr.String())
	}
	if err := machine.Interpret(second); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if out.String() != "42\n" {
		t.Fatalf("expected 42, got %q", out.String())
	}
}

func TestUndefinedVariable(t *testing.T) {
	_, err := run(t, "print missing;")
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if rtErr.Message != "Undefined variable 'missing'." {
		t.Fatalf("unexpected message %q", rtErr.Message)
	}
	if rtErr.Line != 1 {
		t.Fatalf("expected line 1, got %d", rtErr.Line)
	}

	_, err = run(t, "ghost = 1;")
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if rtErr.Message != "Undefined variable 'ghost'." {
		t.Fatalf("unexpected message %q", rtErr.Message)
	}
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`print -"s";`, "Operand must be a number."},
		{`print 1 + "s";`, "Operands must be two numbers or two strings."},
		{`print "a" - "b";`, "Operands must be numbers."},
		{`print "a" < "b";`, "Operands must be numbers."},
	}
	for _, tt := range tests {
		_, err := run(t, tt.src)
		var rtErr *RuntimeError
		if !errors.As(err, &rtErr) {
			t.Fatalf("source %q: expected RuntimeError, got %v", tt.src, err)
		}
		if rtErr.Message != tt.want {
			t.Fatalf("source %q: expected %q, got %q", tt.src, tt.want, rtErr.Message)
		}
	}
}

func TestRuntimeErrorLine(t *testing.T) {
	_, err := run(t, "var a = 1;\nvar b = 2;\nprint a - \"x\";")
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if rtErr.Line != 3 {
		t.Fatalf("expected line 3, got %d", rtErr.Line)
	}
}

// TestWideOperandsExecute drives the 16-bit opcode variants the compiler
// itself cannot reach through a hand-built chunk.
func TestWideOperandsExecute(t *testing.T) {
	pool := value.NewPool()
	chunk := bytecode.New()
	for i := 0; i < 300; i++ {
		chunk.AddConst(value.Num(float64(i)))
	}

	// push const 299 via the wide form, then read it back as a wide local
	chunk.Write(bytecode.OP_CONST_16, 1)
	chunk.Write(1, 1)  // hi
	chunk.Write(43, 1) // lo: 256+43 = 299
	chunk.Write(bytecode.OP_GET_LOCAL_16, 1)
	chunk.Write(0, 1)
	chunk.Write(0, 1)
	chunk.Write(bytecode.OP_PRINT, 1)
	chunk.Write(bytecode.OP_SET_LOCAL_16, 1)
	chunk.Write(0, 1)
	chunk.Write(0, 1)
	chunk.Write(bytecode.OP_PRINT, 1)
	chunk.Write(bytecode.OP_RETURN, 1)

	var out bytes.Buffer
	machine := New(pool, &out)
	if err := machine.Interpret(chunk); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out.String() != "299\n299\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestReservedOpcodesReportError(t *testing.T) {
	pool := value.NewPool()
	chunk := bytecode.New()
	chunk.Write(bytecode.OP_CALL, 1)
	chunk.Write(0, 1)

	machine := New(pool, bytes.NewBuffer(nil))
	err := machine.Interpret(chunk)
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if rtErr.Message != "Functions are not supported." {
		t.Fatalf("unexpected message %q", rtErr.Message)
	}
}
