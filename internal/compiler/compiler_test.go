package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/jcorbin/tinylisp/internal/reader"
)

func mustCompile(t *testing.T, src string) string {
	t.Helper()
	forms, err := reader.Read(src)
	assert.NoError(t, err)
	bc, err := Compile(forms)
	assert.NoError(t, err)
	return bc
}

func TestCompileArithmeticAndPrint(t *testing.T) {
	bc := mustCompile(t, `(print (+ 1 2))`)
	lines := strings.Split(bc, "\n")
	assert.Equal(t, []string{
		"JMP __START__",
		"LABEL __START__",
		"PUSH 1",
		"PUSH 2",
		"ADD",
		"PRINT",
		"PUSH 0",
		"PUSH 0",
		"RET",
	}, lines)
}

func TestCompileDefineAndCall(t *testing.T) {
	bc := mustCompile(t, `(define (fact n) (if (== n 0) 1 (* n (fact (- n 1))))) (print (fact 5))`)
	assert.Contains(t, bc, "DEFUN fact n")
	assert.Contains(t, bc, "CALL fact 1")
	assert.True(t, strings.Index(bc, "DEFUN fact n") < strings.Index(bc, "LABEL __START__"))
}

func TestCompilePrimitiveDispatch(t *testing.T) {
	bc := mustCompile(t, `(car (parse-sexprs (read-all)))`)
	assert.Contains(t, bc, "CALLPRIM read-all 0")
	assert.Contains(t, bc, "CALLPRIM parse-sexprs 1")
	assert.Contains(t, bc, "CALLPRIM car 1")
}

func TestCompileWhile(t *testing.T) {
	bc := mustCompile(t, `(let x 10) (let y 0) (while (< y x) (begin (print y) (let y (+ y 1))))`)
	assert.Contains(t, bc, "STORE x")
	assert.Contains(t, bc, "STORE y")
	assert.Contains(t, bc, "JZ END2")
	assert.Contains(t, bc, "JMP TOP1")
}

// TestCompilerDeterminism is spec section 8's determinism property:
// compiling the same source twice yields byte-identical bytecode.
func TestCompilerDeterminism(t *testing.T) {
	src := `(define (fib n) (if (< n 2) n (+ (fib (- n 1)) (fib (- n 2))))) (print (fib 10))`
	a := mustCompile(t, src)
	b := mustCompile(t, src)
	assert.Equal(t, a, b)
}

// TestLabelUniqueness is spec section 8's label uniqueness property: no
// duplicate LABEL names, and every JMP/JZ target has a matching LABEL.
func TestLabelUniqueness(t *testing.T) {
	src := `(define (f x) (if (< x 0) (- 0 x) x))
(let i 0)
(while (< i 5) (begin (print (f i)) (let i (+ i 1))))
(if (== 1 1) (print 1) (print 0))`
	bc := mustCompile(t, src)

	labels := map[string]bool{}
	var targets []string
	for _, line := range strings.Split(bc, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "LABEL":
			assert.False(t, labels[fields[1]], "duplicate label %s", fields[1])
			labels[fields[1]] = true
		case "JMP", "JZ":
			targets = append(targets, fields[1])
		}
	}
	for _, target := range targets {
		assert.True(t, labels[target], "target %s has no LABEL", target)
	}
}

func TestCompileRejectsNonFunctionDefine(t *testing.T) {
	forms, err := reader.Read(`(define x 5)`)
	assert.NoError(t, err)
	_, err = Compile(forms)
	assert.Error(t, err)
}

func TestCompileRejectsBadIfArity(t *testing.T) {
	forms, err := reader.Read(`(if (== 1 1) 2)`)
	assert.NoError(t, err)
	_, err = Compile(forms)
	assert.Error(t, err)
}

// TestBeginIdempotence is spec section 8's "(begin e) ≡ e" property.
func TestBeginIdempotence(t *testing.T) {
	a := mustCompile(t, `(begin 42)`)
	b := mustCompile(t, `42`)
	assert.Equal(t, a, b)
}

func TestEmptyBeginIsZero(t *testing.T) {
	bc := mustCompile(t, `(begin)`)
	lines := strings.Split(bc, "\n")
	// (begin) with no args compiles to a single PUSH 0, followed by the
	// top-level PUSH 0; RET terminator.
	assert.Equal(t, []string{"JMP __START__", "LABEL __START__", "PUSH 0", "PUSH 0", "RET"}, lines)
}
