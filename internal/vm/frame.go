package vm

import "github.com/jcorbin/tinylisp/internal/value"

// frame is a variable-binding scope: the global frame and every per-call
// local frame implement it identically, per spec section 4.4's "current
// frame, then globals" lookup rule.
type frame interface {
	get(name string) (value.Value, bool)
	set(name string, v value.Value)
}

// localFrame backs a single CALL's argument bindings. Calls in TinyLisp
// programs tend to bind a handful of parameters, so a plain map beats the
// overhead of a hash-table library for this short-lived, small scope.
type localFrame map[string]value.Value

func newLocalFrame() localFrame { return make(localFrame) }

func (f localFrame) get(name string) (value.Value, bool) { v, ok := f[name]; return v, ok }
func (f localFrame) set(name string, v value.Value)       { f[name] = v }

var _ frame = localFrame(nil)
