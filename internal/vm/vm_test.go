package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/tinylisp/internal/compiler"
	"github.com/jcorbin/tinylisp/internal/reader"
)

// vmTestCase is the teacher's table-driven style (jcorbin-gothird's
// vm_expects_test.go): one TinyLisp source program per case, checked
// against its expected printed output.
type vmTestCase struct {
	name   string
	src    string
	want   string
	source string // fed to read-all, for self-hosting-flavored cases
}

func runTinyLisp(t *testing.T, tc vmTestCase) (string, error) {
	t.Helper()
	forms, err := reader.Read(tc.src)
	require.NoError(t, err)
	bc, err := compiler.Compile(forms)
	require.NoError(t, err)

	var out bytes.Buffer
	m := New(WithStdout(&out), WithSource(tc.source))
	runErr := m.Run(bc)
	return out.String(), runErr
}

func TestVMPrograms(t *testing.T) {
	cases := []vmTestCase{
		{
			name: "factorial",
			src: `(define (fact n) (if (== n 0) 1 (* n (fact (- n 1)))))
(print (fact 5))`,
			want: "120\n",
		},
		{
			name: "fibonacci",
			src: `(define (fib n) (if (< n 2) n (+ (fib (- n 1)) (fib (- n 2)))))
(print (fib 10))`,
			want: "55\n",
		},
		{
			name: "while loop counting",
			src: `(let i 0)
(while (< i 5) (begin (print i) (let i (+ i 1))))`,
			want: "0\n1\n2\n3\n4\n",
		},
		{
			name: "floor division matches python semantics",
			src:  `(print (/ -7 2))`,
			want: "-4\n",
		},
		{
			name: "begin returns last form's value",
			src:  `(print (begin 1 2 3))`,
			want: "3\n",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			out, err := runTinyLisp(t, tc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestDivisionByZeroAborts(t *testing.T) {
	_, err := runTinyLisp(t, vmTestCase{src: `(print (/ 1 0))`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestCarOfEmptyListAborts(t *testing.T) {
	_, err := runTinyLisp(t, vmTestCase{src: `(print (car (parse-sexprs "")))`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "car: expected a non-empty list")
}

func TestCallUnknownFunctionAborts(t *testing.T) {
	forms, err := reader.Read(`(print 0)`)
	require.NoError(t, err)
	bc, err := compiler.Compile(forms)
	require.NoError(t, err)
	bc = strings.TrimSuffix(bc, "RET") + "CALL no-such-fn 0\nRET"

	m := New()
	err = m.Run(bc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CALL unknown function: no-such-fn")
}

func TestArityMismatchAborts(t *testing.T) {
	_, err := runTinyLisp(t, vmTestCase{
		src: `(define (f x y) (+ x y)) (print (f 1))`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arity mismatch")
}

func TestUnknownPrimitiveAborts(t *testing.T) {
	forms, err := reader.Read(`(print 0)`)
	require.NoError(t, err)
	bc, err := compiler.Compile(forms)
	require.NoError(t, err)
	bc = strings.TrimSuffix(bc, "RET") + "CALLPRIM no-such-prim 0\nRET"

	m := New()
	err = m.Run(bc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown primitive: no-such-prim")
}

func TestUnknownOpcodeAbortsOnlyWhenDispatched(t *testing.T) {
	m := New()
	err := m.Run("JMP __START__\nLABEL __START__\nPUSH 0\nRET\nBOGUS x y")
	require.NoError(t, err)

	m2 := New()
	err = m2.Run("BOGUS x y\nRET")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown instruction")
}

func TestErrorPrimitiveRaisesRuntimeError(t *testing.T) {
	_, err := runTinyLisp(t, vmTestCase{src: `(error "boom")`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestReadAllAndParseSexprsPrimitives(t *testing.T) {
	out, err := runTinyLisp(t, vmTestCase{
		src:    `(print (car (parse-sexprs (read-all))))`,
		source: `42 (ignored)`,
	})
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestSymbolAndPredicatePrimitives(t *testing.T) {
	out, err := runTinyLisp(t, vmTestCase{
		src: `(print (sym-eq? (sym "a") (sym "a")))
(print (sym-eq? (sym "a") (sym "b")))
(print (int? 1))
(print (str? "x"))
(print (sym? (sym "x")))
(print (pair? (cdr (car (parse-sexprs "(1 2)")))))
(print (null? (cdr (car (parse-sexprs "(1)")))))`,
	})
	require.NoError(t, err)
	assert.Equal(t, "1\n0\n1\n1\n1\n1\n1\n", out)
}

func TestStrCatToStrJSONDumps(t *testing.T) {
	out, err := runTinyLisp(t, vmTestCase{
		src: `(print (str-cat "foo" "bar"))
(print (to-str 42))
(print (json-dumps "a\"b"))`,
	})
	require.NoError(t, err)
	assert.Equal(t, "foobar\n42\n\"a\\\"b\"\n", out)
}

func TestGensymIsMonotonicAndUnique(t *testing.T) {
	out, err := runTinyLisp(t, vmTestCase{
		src: `(print (gensym "g"))
(print (gensym "g"))`,
	})
	require.NoError(t, err)
	assert.Equal(t, "g1\ng2\n", out)
}

// TestGlobalFramePersistsAcrossRuns is spec section 8's REPL scenario: a
// single VM's global frame survives across independently compiled and run
// forms, the way the REPL front end drives it one form at a time.
func TestGlobalFramePersistsAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	m := New(WithStdout(&out))

	compileAndRun := func(src string) error {
		forms, err := reader.Read(src)
		require.NoError(t, err)
		bc, err := compiler.Compile(forms)
		require.NoError(t, err)
		return m.Run(bc)
	}

	require.NoError(t, compileAndRun(`(let counter 0)`))
	require.NoError(t, compileAndRun(`(let counter (+ counter 1))`))
	require.NoError(t, compileAndRun(`(print counter)`))
	assert.Equal(t, "1\n", out.String())
}

func TestStepLimitAborts(t *testing.T) {
	_, err := (func() (string, error) {
		forms, err := reader.Read(`(let i 0) (while (< i 1000000) (let i (+ i 1)))`)
		require.NoError(t, err)
		bc, err := compiler.Compile(forms)
		require.NoError(t, err)
		m := New(WithMaxSteps(10))
		return "", m.Run(bc)
	})()
	require.Error(t, err)
	var sle StepLimitError
	assert.ErrorAs(t, err, &sle)
}

func TestUnboundLoadYieldsZero(t *testing.T) {
	out, err := runTinyLisp(t, vmTestCase{src: `(print never-bound)`})
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}
