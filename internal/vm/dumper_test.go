package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/tinylisp/internal/compiler"
	"github.com/jcorbin/tinylisp/internal/reader"
)

// TestDumperReportsState follows the teacher's expectDump/dumpToTest style
// (jcorbin-gothird's vm_test.go): run a small program, then assert the
// dump report reflects its final state rather than matching it
// byte-for-byte against a golden (the operand stack's %v rendering is
// not checked here).
func TestDumperReportsState(t *testing.T) {
	forms, err := reader.Read(`(define (double x) (* x 2)) (print (double 21))`)
	require.NoError(t, err)
	bc, err := compiler.Compile(forms)
	require.NoError(t, err)

	m := New()
	require.NoError(t, m.Run(bc))

	var out strings.Builder
	Dumper{VM: m, Out: &out}.Dump()
	report := out.String()

	assert.Contains(t, report, "# VM Dump")
	assert.Contains(t, report, "instructions: ")
	assert.Contains(t, report, "frames: 1")
	assert.Contains(t, report, "callstack depth: 0")
}

// TestDumperIncludesTrace exercises the Trace field the CLI's -dump/-trace
// combination populates from its traceTail wrapper.
func TestDumperIncludesTrace(t *testing.T) {
	m := New()
	var out strings.Builder
	Dumper{VM: m, Out: &out, Trace: []string{"0000 PUSH 1", "0001 RET"}}.Dump()
	report := out.String()

	assert.Contains(t, report, "recent trace:")
	assert.Contains(t, report, "0000 PUSH 1")
	assert.Contains(t, report, "0001 RET")
}
