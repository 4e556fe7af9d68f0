// Package compiler lowers TinyLisp's homoiconic AST into the line-oriented
// stack-machine bytecode of spec section 6.2, per the lowering table of
// spec section 4.2.
//
// Grounded on original_source/tinylisp_v0.py's class C, the authoritative
// reference compiler TinyLisp is meant to be able to compile itself into;
// this is a transliteration of that lowering table into idiomatic Go,
// alongside skx-math-compiler/compiler's surrounding compiler-struct idiom.
package compiler

import (
	"fmt"

	"github.com/jcorbin/tinylisp/internal/bytecode"
	"github.com/jcorbin/tinylisp/internal/langerr"
	"github.com/jcorbin/tinylisp/internal/value"
)

// primSet is the closed set of primitive names dispatched via CALLPRIM,
// per spec section 6.3. Any other call-position symbol lowers to CALL.
// Carried verbatim from original_source/tinylisp_v0.py's prim_set.
var primSet = map[string]bool{
	"read-all": true, "parse-sexprs": true, "emit": true, "gensym": true,
	"str-cat": true, "to-str": true,
	"sym": true, "sym-name": true, "sym-eq?": true,
	"int?": true, "sym?": true, "pair?": true, "null?": true, "str?": true,
	"json-dumps": true,
	"car":        true, "cdr": true, "error": true,
}

var binOps = map[string]bytecode.Op{
	"+": bytecode.ADD, "-": bytecode.SUB, "*": bytecode.MUL,
	"/": bytecode.DIV, "<": bytecode.LT, "==": bytecode.EQ,
}

// Compiler holds the state of a single compilation: the growing
// instruction list and a monotonic label counter. label_id starts at 0 for
// every fresh Compiler, so compiling identical source twice is
// byte-identical (spec section 8's determinism property).
type Compiler struct {
	lines   []bytecode.Instruction
	labelID int
}

// New returns a fresh Compiler instance.
func New() *Compiler { return &Compiler{} }

// Compile lowers forms to bytecode text in one shot, the common entry
// point for the `compile` CLI mode and for tests.
func Compile(forms []value.Value) (string, error) {
	c := New()
	return c.CompileProgram(forms)
}

func (c *Compiler) emit(inst bytecode.Instruction) { c.lines = append(c.lines, inst) }

// gensym returns a fresh, compilation-unique label name, per spec section
// 4.2's "monotonic counter label_id backs a gensym(prefix)".
func (c *Compiler) gensym(prefix string) string {
	c.labelID++
	return fmt.Sprintf("%s%d", prefix, c.labelID)
}

// text joins the emitted instructions into the final bytecode program.
func (c *Compiler) text() string {
	var out string
	for i, inst := range c.lines {
		if i > 0 {
			out += "\n"
		}
		out += inst.String()
	}
	return out
}

// CompileProgram implements spec section 4.2's top-level strategy: jump
// over function bodies, compile all top-level defines first, then the
// remaining forms at __START__, finishing with a clean top-level return.
func (c *Compiler) CompileProgram(forms []value.Value) (string, error) {
	c.emit(bytecode.Named(bytecode.JMP, "__START__"))

	var defines, rest []value.Value
	for _, f := range forms {
		if isDefineForm(f) {
			defines = append(defines, f)
		} else {
			rest = append(rest, f)
		}
	}

	for _, d := range defines {
		if err := c.compileDefine(d); err != nil {
			return "", err
		}
	}

	c.emit(bytecode.Named(bytecode.LABEL, "__START__"))
	for _, f := range rest {
		if err := c.compileForm(f); err != nil {
			return "", err
		}
	}

	c.emit(bytecode.Push(0))
	c.emit(bytecode.Simple(bytecode.RET))
	return c.text(), nil
}

func isDefineForm(f value.Value) bool {
	if !f.IsPair() {
		return false
	}
	head := f.ListElems()[0]
	return head.IsSym() && head.SymName() == "define"
}

// compileDefine lowers `(define (fname p1 p2 ...) body)` to a DEFUN
// prologue, the compiled body, and a trailing RET. Non-function defines
// are rejected here: spec section 9's Open Question resolves this in
// favor of the compiler's stricter rule (see DESIGN.md).
func (c *Compiler) compileDefine(form value.Value) error {
	elems := form.ListElems()
	if len(elems) != 3 {
		return langerr.SyntaxError{Msg: "define: expected (define (f args..) body)"}
	}
	sig, body := elems[1], elems[2]
	if !sig.IsPair() || !sig.ListElems()[0].IsSym() {
		return langerr.SyntaxError{Msg: "define: function form only, e.g. (define (f x) body)"}
	}
	sigElems := sig.ListElems()
	fname := sigElems[0].SymName()
	params := make([]string, 0, len(sigElems)-1)
	for _, p := range sigElems[1:] {
		if !p.IsSym() {
			return langerr.SyntaxError{Msg: fmt.Sprintf("define: expected symbol parameter, got %v", p)}
		}
		params = append(params, p.SymName())
	}

	c.emit(bytecode.Defun(fname, params...))
	if err := c.compileForm(body); err != nil {
		return err
	}
	c.emit(bytecode.Simple(bytecode.RET))
	return nil
}

// compileForm lowers a single form per spec section 4.2's table.
func (c *Compiler) compileForm(x value.Value) error {
	switch x.Kind() {
	case value.KindInt:
		c.emit(bytecode.Push(x.Int()))
		return nil
	case value.KindStr:
		c.emit(bytecode.PushStr(x.Str()))
		return nil
	case value.KindSym:
		c.emit(bytecode.Named(bytecode.LOAD, x.SymName()))
		return nil
	}

	// x is a list.
	if x.IsNull() {
		c.emit(bytecode.Push(0))
		return nil
	}

	elems := x.ListElems()
	op := elems[0]
	args := elems[1:]

	if op.IsSym() {
		switch op.SymName() {
		case "begin":
			if len(args) == 0 {
				c.emit(bytecode.Push(0))
				return nil
			}
			for _, a := range args {
				if err := c.compileForm(a); err != nil {
					return err
				}
			}
			return nil

		case "if":
			if len(args) != 3 {
				return langerr.SyntaxError{Msg: "if: expected (if cond then else)"}
			}
			lElse := c.gensym("ELSE")
			lEnd := c.gensym("END")
			if err := c.compileForm(args[0]); err != nil {
				return err
			}
			c.emit(bytecode.Named(bytecode.JZ, lElse))
			if err := c.compileForm(args[1]); err != nil {
				return err
			}
			c.emit(bytecode.Named(bytecode.JMP, lEnd))
			c.emit(bytecode.Named(bytecode.LABEL, lElse))
			if err := c.compileForm(args[2]); err != nil {
				return err
			}
			c.emit(bytecode.Named(bytecode.LABEL, lEnd))
			return nil

		case "let", "set":
			if len(args) != 2 || !args[0].IsSym() {
				return langerr.SyntaxError{Msg: fmt.Sprintf("%s: expected (%s x expr)", op.SymName(), op.SymName())}
			}
			if err := c.compileForm(args[1]); err != nil {
				return err
			}
			c.emit(bytecode.Named(bytecode.STORE, args[0].SymName()))
			return nil

		case "while":
			if len(args) < 2 {
				return langerr.SyntaxError{Msg: "while: expected (while cond body...)"}
			}
			top := c.gensym("TOP")
			end := c.gensym("END")
			c.emit(bytecode.Named(bytecode.LABEL, top))
			if err := c.compileForm(args[0]); err != nil {
				return err
			}
			c.emit(bytecode.Named(bytecode.JZ, end))
			for _, st := range args[1:] {
				if err := c.compileForm(st); err != nil {
					return err
				}
			}
			c.emit(bytecode.Named(bytecode.JMP, top))
			c.emit(bytecode.Named(bytecode.LABEL, end))
			c.emit(bytecode.Push(0))
			return nil

		case "print":
			if len(args) != 1 {
				return langerr.SyntaxError{Msg: "print: expected 1 arg"}
			}
			if err := c.compileForm(args[0]); err != nil {
				return err
			}
			c.emit(bytecode.Simple(bytecode.PRINT))
			c.emit(bytecode.Push(0))
			return nil
		}

		if binOp, ok := binOps[op.SymName()]; ok {
			if len(args) != 2 {
				return langerr.SyntaxError{Msg: fmt.Sprintf("%s: expected 2 args", op.SymName())}
			}
			if err := c.compileForm(args[0]); err != nil {
				return err
			}
			if err := c.compileForm(args[1]); err != nil {
				return err
			}
			c.emit(bytecode.Simple(binOp))
			return nil
		}
	}

	if !op.IsSym() {
		return langerr.SyntaxError{Msg: "call: operator must be a symbol"}
	}

	for _, a := range args {
		if err := c.compileForm(a); err != nil {
			return err
		}
	}

	name := op.SymName()
	if primSet[name] {
		c.emit(bytecode.CallPrim(name, len(args)))
	} else {
		c.emit(bytecode.Call(name, len(args)))
	}
	return nil
}
