package vm

import "io"

// Option configures a VM at construction time, following jcorbin-gothird's
// functional-options constructor idiom (its api.go/options.go
// New(opts ...Option) shape).
type Option func(*VM)

// WithSource sets the text returned by the `read-all` primitive: the
// TinyLisp source a self-hosted compiler program reads and compiles.
func WithSource(src string) Option {
	return func(vm *VM) { vm.source = src }
}

// WithStdout sets the stream PRINT instructions write to. Defaults to
// io.Discard.
func WithStdout(w io.Writer) Option {
	return func(vm *VM) { vm.stdout = w }
}

// WithTrace attaches a printf-style callback that receives one formatted
// line per dispatched instruction, for the `-trace` CLI mode. Pass
// log.Leveledf("TRACE") to drive it from a logio.Logger, following
// jcorbin-gothird's own WithLogf(log.Leveledf("TRACE")) call. Defaults to
// no tracing.
func WithTrace(logf func(mess string, args ...interface{})) Option {
	return func(vm *VM) { vm.trace = logf }
}

// WithMaxSteps bounds the number of dispatched instructions before Run
// aborts with a StepLimitError, guarding against non-terminating programs
// (e.g. a `while` whose condition never reaches zero). Zero, the default,
// means unbounded.
func WithMaxSteps(n int) Option {
	return func(vm *VM) { vm.maxSteps = n }
}
