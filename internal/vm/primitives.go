package vm

import (
	"encoding/json"
	"fmt"

	"github.com/jcorbin/tinylisp/internal/langerr"
	"github.com/jcorbin/tinylisp/internal/reader"
	"github.com/jcorbin/tinylisp/internal/value"
)

// primFunc is one CALLPRIM implementation. args are already popped off the
// operand stack in left-to-right order.
type primFunc func(vm *VM, args []value.Value) (value.Value, error)

// primTable is the closed set of primitive names dispatched via CALLPRIM,
// per spec section 6.3. Carried over from original_source/vm.py's PRIMS
// dict, one function per entry, transliterated to Go's explicit-error
// style in place of Python's uncaught-exception-on-type-mismatch style.
var primTable = map[string]primFunc{
	"read-all":     primReadAll,
	"parse-sexprs": primParseSexprs,
	"emit":         primEmit,
	"gensym":       primGensym,
	"str-cat":      primStrCat,
	"to-str":       primToStr,
	"sym":          primSym,
	"sym-name":     primSymName,
	"sym-eq?":      primSymEq,
	"int?":         primIntP,
	"str?":         primStrP,
	"sym?":         primSymP,
	"pair?":        primPairP,
	"null?":        primNullP,
	"json-dumps":   primJSONDumps,
	"car":          primCar,
	"cdr":          primCdr,
	"error":        primError,
}

func (vm *VM) callPrim(args []string) (jumped, done bool, err error) {
	if len(args) < 2 {
		return false, false, langerr.RuntimeError{Msg: "CALLPRIM: missing operands"}
	}
	pname := args[0]
	argc, err := argInt(args, 1)
	if err != nil {
		return false, false, err
	}
	fn, ok := primTable[pname]
	if !ok {
		return false, false, langerr.RuntimeError{Msg: "Unknown primitive: " + pname}
	}

	argvs := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return false, false, err
		}
		argvs[i] = v
	}

	res, err := fn(vm, argvs)
	if err != nil {
		return false, false, err
	}
	vm.push(res)
	return false, false, nil
}

func primReadAll(vm *VM, args []value.Value) (value.Value, error) {
	return value.Str(vm.source), nil
}

// primParseSexprs implements `parse-sexprs`, handing its argument to the
// same reader the compiler itself uses to turn source text into forms,
// returned as a TinyLisp list of forms so a self-hosted compiler program
// can walk it like any other list.
func primParseSexprs(vm *VM, args []value.Value) (value.Value, error) {
	s, err := wantStr("parse-sexprs", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	forms, err := reader.Read(s)
	if err != nil {
		return value.Value{}, err
	}
	return value.List(forms...), nil
}

func primEmit(vm *VM, args []value.Value) (value.Value, error) {
	s, err := wantStr("emit", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	vm.emitted = append(vm.emitted, s)
	return value.Int(0), nil
}

func primGensym(vm *VM, args []value.Value) (value.Value, error) {
	prefix, err := wantStr("gensym", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	vm.gensymID++
	return value.Str(fmt.Sprintf("%s%d", prefix, vm.gensymID)), nil
}

func primStrCat(vm *VM, args []value.Value) (value.Value, error) {
	a, err := wantStr("str-cat", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	b, err := wantStr("str-cat", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.Str(a + b), nil
}

// primToStr implements `to-str`. Lists have no canonical textual form (spec
// section 9's Open Question), so they are rejected with a TypeError rather
// than falling back to Go's or Python's printer accident.
func primToStr(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, langerr.RuntimeError{Msg: "to-str: expected 1 arg"}
	}
	if args[0].IsList() {
		return value.Value{}, langerr.TypeError{Msg: "to-str: lists have no textual representation"}
	}
	return value.Str(args[0].ToStr()), nil
}

func primSym(vm *VM, args []value.Value) (value.Value, error) {
	s, err := wantStr("sym", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.Sym(s), nil
}

func primSymName(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsSym() {
		return value.Value{}, langerr.TypeError{Msg: "sym-name: expected a symbol"}
	}
	return value.Str(args[0].SymName()), nil
}

// primSymEq implements `sym-eq?`. Mirrors original_source/vm.py's
// isinstance guard: comparing anything other than two symbols yields 0
// rather than a type error.
func primSymEq(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, langerr.RuntimeError{Msg: "sym-eq?: expected 2 args"}
	}
	if args[0].IsSym() && args[1].IsSym() {
		return boolValue(args[0].SymEq(args[1])), nil
	}
	return value.Int(0), nil
}

func primIntP(vm *VM, args []value.Value) (value.Value, error) {
	return predicate(args, func(v value.Value) bool { return v.IsInt() })
}

func primStrP(vm *VM, args []value.Value) (value.Value, error) {
	return predicate(args, func(v value.Value) bool { return v.IsStr() })
}

func primSymP(vm *VM, args []value.Value) (value.Value, error) {
	return predicate(args, func(v value.Value) bool { return v.IsSym() })
}

func primPairP(vm *VM, args []value.Value) (value.Value, error) {
	return predicate(args, func(v value.Value) bool { return v.IsPair() })
}

func primNullP(vm *VM, args []value.Value) (value.Value, error) {
	return predicate(args, func(v value.Value) bool { return v.IsNull() })
}

func predicate(args []value.Value, f func(value.Value) bool) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, langerr.RuntimeError{Msg: "predicate: expected 1 arg"}
	}
	return boolValue(f(args[0])), nil
}

func primJSONDumps(vm *VM, args []value.Value) (value.Value, error) {
	s, err := wantStr("json-dumps", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	b, jerr := json.Marshal(s)
	if jerr != nil {
		return value.Value{}, langerr.RuntimeError{Msg: "json-dumps: " + jerr.Error()}
	}
	return value.Str(string(b)), nil
}

func primCar(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsPair() {
		return value.Value{}, langerr.TypeError{Msg: "car: expected a non-empty list"}
	}
	return args[0].ListElems()[0], nil
}

func primCdr(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) != 1 || !args[0].IsPair() {
		return value.Value{}, langerr.TypeError{Msg: "cdr: expected a non-empty list"}
	}
	elems := args[0].ListElems()
	return value.List(elems[1:]...), nil
}

// primError implements `error`, raising a RuntimeError carrying the given
// message, per original_source/vm.py's prim_error.
func primError(vm *VM, args []value.Value) (value.Value, error) {
	msg, err := wantStr("error", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.Value{}, langerr.RuntimeError{Msg: msg}
}

func wantStr(prim string, args []value.Value, i int) (string, error) {
	if i >= len(args) {
		return "", langerr.RuntimeError{Msg: prim + ": missing argument"}
	}
	if !args[i].IsStr() {
		return "", langerr.TypeError{Msg: prim + ": expected a string argument"}
	}
	return args[i].Str(), nil
}
