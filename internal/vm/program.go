// Package vm implements the bytecode stack machine of spec sections 4.3,
// 4.4 and 6.3: a two-scan load phase over instruction text, followed by a
// dispatch loop over an operand stack, a frame stack, and a return-address
// stack.
//
// Grounded on original_source/vm.py's run(), the authoritative dispatch
// semantics this package transliterates, alongside jcorbin-gothird's
// internals.go for the load/push/pop/halt helper idiom and db47h-ngaro's
// vm/run.go for a label-indexed dispatch loop's general shape.
package vm

import (
	"strconv"
	"strings"

	"github.com/jcorbin/tinylisp/internal/bytecode"
	"github.com/jcorbin/tinylisp/internal/langerr"
)

// funcInfo records one DEFUN's entry point (the instruction after DEFUN)
// and formal parameter names.
type funcInfo struct {
	entry  int
	params []string
}

// Program is a loaded bytecode program: the parsed instruction list plus
// the label and function tables built by the load-time pre-pass, per spec
// section 4.3.
type Program struct {
	instrs []bytecode.Instruction
	labels map[string]int
	funcs  map[string]funcInfo
}

// Load parses bytecode text into a Program, running the same two-scan
// pre-pass as original_source/vm.py's run(): first a LABEL scan, then a
// DEFUN scan recording each function's entry point as the instruction
// immediately following its DEFUN line.
//
// Blank lines and lines starting with "#" are skipped, matching the
// reference loader's comment convention for hand-written bytecode.
func Load(text string) (*Program, error) {
	var instrs []bytecode.Instruction
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inst, err := bytecode.ParseLine(line)
		if err != nil {
			return nil, langerr.SyntaxError{Msg: err.Error()}
		}
		instrs = append(instrs, inst)
	}

	labels := make(map[string]int)
	for i, inst := range instrs {
		if inst.Op == bytecode.LABEL {
			labels[inst.Args[0]] = i
		}
	}

	funcs := make(map[string]funcInfo)
	for i, inst := range instrs {
		if inst.Op == bytecode.DEFUN {
			name := inst.Args[0]
			funcs[name] = funcInfo{entry: i + 1, params: append([]string(nil), inst.Args[1:]...)}
		}
	}

	return &Program{instrs: instrs, labels: labels, funcs: funcs}, nil
}

// Len returns the number of loaded instructions, mostly useful for tests
// and the `-dump` CLI mode.
func (p *Program) Len() int { return len(p.instrs) }

func (p *Program) instructionAt(ip int) (bytecode.Instruction, bool) {
	if ip < 0 || ip >= len(p.instrs) {
		return bytecode.Instruction{}, false
	}
	return p.instrs[ip], true
}

func argInt(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, langerr.RuntimeError{Msg: "missing instruction operand"}
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, langerr.RuntimeError{Msg: "bad integer operand: " + args[i]}
	}
	return n, nil
}
