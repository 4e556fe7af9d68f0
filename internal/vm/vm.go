package vm

import (
	"fmt"
	"io"

	"github.com/jcorbin/tinylisp/internal/bytecode"
	"github.com/jcorbin/tinylisp/internal/langerr"
	"github.com/jcorbin/tinylisp/internal/panicerr"
	"github.com/jcorbin/tinylisp/internal/value"
)

// VM executes a loaded Program. Construct one with New and run it with Run;
// a VM is reusable across multiple Run calls against fresh programs (the
// REPL front end keeps one VM's global frame alive across many single-form
// programs, per spec section 8's REPL scenario).
type VM struct {
	source   string
	stdout   io.Writer
	trace    func(mess string, args ...interface{})
	maxSteps int

	prog      *Program
	stack     []value.Value
	frames    []frame
	callstack []int
	ip        int
	steps     int
	gensymID  int
	emitted   []string
}

// New returns a VM ready to load and run programs. The returned VM owns a
// single persistent global frame; successive Load+Run calls on the same VM
// share that frame, which is what the REPL front end relies on.
func New(opts ...Option) *VM {
	vm := &VM{stdout: io.Discard}
	for _, opt := range opts {
		opt(vm)
	}
	vm.frames = []frame{newGlobalFrame()}
	return vm
}

// Emitted returns the lines accumulated by the `emit` primitive so far,
// joined by newlines. This is the channel a self-hosted TinyLisp compiler
// writes its own output bytecode through, distinct from PRINT's direct
// write to Stdout.
func (vm *VM) Emitted() string {
	out := ""
	for i, line := range vm.emitted {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

// Run loads and executes program text to completion (a top-level RET, or a
// program that runs off the end of its instructions) and returns any
// runtime error. A goroutine panic during dispatch (a defensive backstop,
// not a control-flow path any correct program should hit) is recovered and
// reported as an error rather than crashing the caller, per jcorbin-gothird's
// panicerr.Recover idiom.
func (vm *VM) Run(text string) error {
	prog, err := Load(text)
	if err != nil {
		return err
	}
	vm.prog = prog
	vm.stack = vm.stack[:0]
	vm.callstack = vm.callstack[:0]
	vm.ip = 0
	return panicerr.Recover("vm", vm.dispatch)
}

func (vm *VM) dispatch() error {
	for {
		inst, ok := vm.prog.instructionAt(vm.ip)
		if !ok {
			return nil
		}

		if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
			return StepLimitError{Limit: vm.maxSteps}
		}
		vm.steps++

		if vm.trace != nil {
			vm.trace("%04d %s", vm.ip, inst)
		}

		jumped, done, err := vm.step(inst)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !jumped {
			vm.ip++
		}
	}
}

// step executes one instruction. jumped reports whether ip was already
// updated (JMP, JZ-taken, CALL, RET); done reports whether the program
// halted (a RET back past the top-level frame).
func (vm *VM) step(inst bytecode.Instruction) (jumped, done bool, err error) {
	switch inst.Op {
	case bytecode.PUSH:
		n, err := argInt(inst.Args, 0)
		if err != nil {
			return false, false, err
		}
		vm.push(value.Int(n))

	case bytecode.PUSHSTR:
		s := ""
		if len(inst.Args) > 0 {
			s = inst.Args[0]
		}
		vm.push(value.Str(s))

	case bytecode.LOAD:
		vm.push(vm.loadVar(inst.Args[0]))

	case bytecode.STORE:
		v, err := vm.pop()
		if err != nil {
			return false, false, err
		}
		vm.storeVar(inst.Args[0], v)

	case bytecode.ADD:
		return vm.binArith(func(a, b int) int { return a + b })
	case bytecode.SUB:
		return vm.binArith(func(a, b int) int { return a - b })
	case bytecode.MUL:
		return vm.binArith(func(a, b int) int { return a * b })
	case bytecode.DIV:
		a, b, err := vm.popTwoInts()
		if err != nil {
			return false, false, err
		}
		if b == 0 {
			return false, false, langerr.RuntimeError{Msg: "division by zero"}
		}
		vm.push(value.Int(floorDiv(a, b)))

	case bytecode.LT:
		a, b, err := vm.popTwoInts()
		if err != nil {
			return false, false, err
		}
		vm.push(boolValue(a < b))

	case bytecode.EQ:
		b, err := vm.pop()
		if err != nil {
			return false, false, err
		}
		a, err := vm.pop()
		if err != nil {
			return false, false, err
		}
		vm.push(boolValue(value.Equal(a, b)))

	case bytecode.PRINT:
		v, err := vm.pop()
		if err != nil {
			return false, false, err
		}
		fmt.Fprintln(vm.stdout, v.ToStr())

	case bytecode.LABEL:
		// no-op at dispatch time; only meaningful as a JMP/JZ target.

	case bytecode.JMP:
		target, err := vm.label(inst.Args[0])
		if err != nil {
			return false, false, err
		}
		vm.ip = target
		return true, false, nil

	case bytecode.JZ:
		cond, err := vm.pop()
		if err != nil {
			return false, false, err
		}
		if cond.IsInt() && cond.Int() == 0 {
			target, err := vm.label(inst.Args[0])
			if err != nil {
				return false, false, err
			}
			vm.ip = target
			return true, false, nil
		}

	case bytecode.DEFUN:
		// recorded at load time; execution falls through (the compiler
		// always emits a JMP over function bodies from the top).

	case bytecode.CALL:
		return vm.call(inst.Args)

	case bytecode.RET:
		return vm.ret()

	case bytecode.CALLPRIM:
		return vm.callPrim(inst.Args)

	case bytecode.INVALID:
		return false, false, langerr.RuntimeError{Msg: fmt.Sprintf("Unknown instruction: %v", inst.Args)}

	default:
		return false, false, langerr.RuntimeError{Msg: fmt.Sprintf("Unknown instruction: %v", inst.Args)}
	}
	return false, false, nil
}

func (vm *VM) call(args []string) (jumped, done bool, err error) {
	if len(args) < 2 {
		return false, false, langerr.RuntimeError{Msg: "CALL: missing operands"}
	}
	fname := args[0]
	argc, err := argInt(args, 1)
	if err != nil {
		return false, false, err
	}
	fn, ok := vm.prog.funcs[fname]
	if !ok {
		return false, false, langerr.RuntimeError{Msg: "CALL unknown function: " + fname}
	}
	if len(fn.params) != argc {
		return false, false, langerr.RuntimeError{Msg: fmt.Sprintf(
			"CALL arity mismatch for %s: expected %d got %d", fname, len(fn.params), argc)}
	}

	argvs := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return false, false, err
		}
		argvs[i] = v
	}
	newFrame := newLocalFrame()
	for i, p := range fn.params {
		newFrame.set(p, argvs[i])
	}

	vm.callstack = append(vm.callstack, vm.ip+1)
	vm.frames = append(vm.frames, newFrame)
	vm.ip = fn.entry
	return true, false, nil
}

func (vm *VM) ret() (jumped, done bool, err error) {
	if len(vm.frames) == 1 {
		return false, true, nil
	}
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.ip = vm.callstack[len(vm.callstack)-1]
	vm.callstack = vm.callstack[:len(vm.callstack)-1]
	return true, false, nil
}

func (vm *VM) label(name string) (int, error) {
	ip, ok := vm.prog.labels[name]
	if !ok {
		return 0, langerr.RuntimeError{Msg: "unknown label: " + name}
	}
	return ip, nil
}

func (vm *VM) binArith(f func(a, b int) int) (jumped, done bool, err error) {
	a, b, err := vm.popTwoInts()
	if err != nil {
		return false, false, err
	}
	vm.push(value.Int(f(a, b)))
	return false, false, nil
}

func (vm *VM) popTwoInts() (a, b int, err error) {
	bv, err := vm.pop()
	if err != nil {
		return 0, 0, err
	}
	av, err := vm.pop()
	if err != nil {
		return 0, 0, err
	}
	if !av.IsInt() || !bv.IsInt() {
		return 0, 0, langerr.TypeError{Msg: "arithmetic requires integer operands"}
	}
	return av.Int(), bv.Int(), nil
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, langerr.RuntimeError{Msg: "stack underflow"}
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) loadVar(name string) value.Value {
	if v, ok := vm.frames[len(vm.frames)-1].get(name); ok {
		return v
	}
	if v, ok := vm.frames[0].get(name); ok {
		return v
	}
	return value.Int(0)
}

func (vm *VM) storeVar(name string, v value.Value) {
	vm.frames[len(vm.frames)-1].set(name, v)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func boolValue(b bool) value.Value {
	if b {
		return value.Int(1)
	}
	return value.Int(0)
}
