// Package langerr holds the TinyLisp error taxonomy of spec section 7,
// shared by the lexer, reader, compiler, and VM so that callers can type-
// switch on failure kind regardless of which pipeline stage raised it.
package langerr

// SyntaxError reports a lexical, reader, or compiler shape violation:
// malformed tokens, unclosed forms, malformed special forms.
type SyntaxError struct{ Msg string }

func (e SyntaxError) Error() string { return e.Msg }

// RuntimeError reports a VM failure: unknown function, unknown primitive,
// arity mismatch, an explicit `error` call, or an unknown instruction.
type RuntimeError struct{ Msg string }

func (e RuntimeError) Error() string { return e.Msg }

// TypeError reports an operation whose operand types don't match, e.g.
// `car` of a non-list or `to-str` of a list.
type TypeError struct{ Msg string }

func (e TypeError) Error() string { return e.Msg }

// NameError reports an unbound symbol in interpreter-mode semantics. The
// VM never raises this itself (an unbound LOAD silently yields 0, per
// spec's deliberate VM/interpreter asymmetry); it exists so that lint-style
// tooling built atop the same taxonomy can report the condition the
// spec's Open Questions call out, without the VM's own control flow ever
// needing to distinguish it from a RuntimeError.
type NameError struct{ Msg string }

func (e NameError) Error() string { return e.Msg }
