// Command tinylisp is the toolchain's CLI glue: compile TinyLisp source to
// bytecode, run bytecode against the VM, or start an interactive REPL.
// Out of scope per spec.md section 1/6.1, kept only so the module builds
// into a runnable binary; grounded on jcorbin-gothird's main.go flag set
// and logger wiring.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jcorbin/tinylisp/internal/bytecode"
	"github.com/jcorbin/tinylisp/internal/compiler"
	"github.com/jcorbin/tinylisp/internal/flushio"
	"github.com/jcorbin/tinylisp/internal/logio"
	"github.com/jcorbin/tinylisp/internal/reader"
	"github.com/jcorbin/tinylisp/internal/repl"
	"github.com/jcorbin/tinylisp/internal/vm"
)

func main() {
	var log logio.Logger
	log.SetOutput(os.Stderr)
	os.Exit(run(&log))
}

func run(log *logio.Logger) int {
	mode := flag.String("mode", "run", "one of: compile, run, repl")
	src := flag.String("src", "", "input file path (compile: TinyLisp source; run: bytecode); defaults to stdin")
	out := flag.String("out", "", "output file path; defaults to stdout")
	stdinSrc := flag.String("stdin-src", "", "TinyLisp source file fed to the VM's read-all primitive (run mode only)")
	trace := flag.Bool("trace", false, "log one line per dispatched instruction")
	dump := flag.Bool("dump", false, "run mode: print a VM state dump after execution")
	lint := flag.Bool("lint", false, "compile mode: warn about LOADs of names never STOREd or bound as a parameter")
	maxSteps := flag.Int("max-steps", 0, "run mode: abort after this many dispatched instructions (0 = unbounded)")
	flag.Parse()

	switch *mode {
	case "compile":
		log.ErrorIf(runCompile(*src, *out, *lint, log))
	case "run":
		log.ErrorIf(runRun(*src, *stdinSrc, *trace, *dump, *maxSteps, log))
	case "repl":
		log.ErrorIf(runREPL(log))
	default:
		log.Errorf("unknown -mode %q", *mode)
	}
	return log.ExitCode()
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func runCompile(srcPath, outPath string, lint bool, log *logio.Logger) error {
	in, err := openInput(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()
	text, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	forms, err := reader.Read(string(text))
	if err != nil {
		return err
	}
	bc, err := compiler.Compile(forms)
	if err != nil {
		return err
	}

	if lint {
		for _, warning := range lintUnboundLoads(bc) {
			log.Printf("LINT", "%s", warning)
		}
	}

	w, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer w.Close()
	wf := flushio.NewWriteFlusher(w)
	if _, err := fmt.Fprintln(wf, bc); err != nil {
		return err
	}
	return wf.Flush()
}

// lintUnboundLoads statically scans compiled bytecode text for LOADs of a
// name that is never the target of a STORE or a DEFUN parameter anywhere
// in the program. These LOADs aren't errors (spec.md's Open Question
// keeps the VM's "unbound LOAD yields 0" behavior authoritative) but are
// very often a typo, so -lint surfaces them without failing compilation.
func lintUnboundLoads(bc string) []string {
	bound := map[string]bool{}
	var loads []string
	for _, line := range strings.Split(bc, "\n") {
		inst, err := bytecode.ParseLine(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		switch inst.Op {
		case bytecode.STORE:
			if len(inst.Args) > 0 {
				bound[inst.Args[0]] = true
			}
		case bytecode.DEFUN:
			for _, p := range inst.Args[1:] {
				bound[p] = true
			}
		case bytecode.LOAD:
			if len(inst.Args) > 0 {
				loads = append(loads, inst.Args[0])
			}
		}
	}

	var warnings []string
	seen := map[string]bool{}
	for _, name := range loads {
		if !bound[name] && !seen[name] {
			seen[name] = true
			warnings = append(warnings, fmt.Sprintf("LOAD of %q is never STOREd or bound as a parameter", name))
		}
	}
	return warnings
}

// traceTail is an io.WriteCloser that remembers the last few formatted
// trace lines while passing every write through to the wrapped logger
// output unchanged. It backs `-dump`'s "recent trace" section: log.Wrap
// interposes one of these between the logger and its real output for the
// duration of a traced run, the same way jcorbin-gothird's main.go pipes
// -trace output through a scanning wrapper via log.Wrap.
type traceTail struct {
	inner io.WriteCloser
	lines []string
	max   int
}

func (t *traceTail) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		t.lines = append(t.lines, line)
	}
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
	return t.inner.Write(p)
}

func (t *traceTail) Close() error { return t.inner.Close() }

const traceTailSize = 20

func runRun(bcPath, stdinSrcPath string, trace, dump bool, maxSteps int, log *logio.Logger) error {
	in, err := openInput(bcPath)
	if err != nil {
		return err
	}
	defer in.Close()
	bcText, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var source string
	if stdinSrcPath != "" {
		srcText, err := os.ReadFile(stdinSrcPath)
		if err != nil {
			return err
		}
		source = string(srcText)
	}

	stdout := flushio.NewWriteFlusher(os.Stdout)

	// When dumping, tee program output through a capture buffer as well as
	// the terminal, combined into a single flushable sink so the dump
	// report can show what the program most recently printed.
	var capture bytes.Buffer
	if dump {
		stdout = flushio.WriteFlushers(stdout, flushio.NewWriteFlusher(&capture))
	}

	opts := []vm.Option{vm.WithStdout(stdout), vm.WithSource(source)}

	var tail *traceTail
	if trace {
		tail = &traceTail{max: traceTailSize}
		log.Wrap(func(wc io.WriteCloser) io.WriteCloser {
			tail.inner = wc
			return tail
		})
		opts = append(opts, vm.WithTrace(log.Leveledf("TRACE")))
	}
	if maxSteps > 0 {
		opts = append(opts, vm.WithMaxSteps(maxSteps))
	}

	m := vm.New(opts...)
	runErr := m.Run(string(bcText))

	if trace {
		log.Unwrap()
	}

	// The `emit` channel is a self-hosted compiler's actual return value,
	// distinct from PRINT's direct stdout stream; flush it to stdout at
	// program termination the way original_source/vm.py's main() does
	// ("if emitted: sys.stdout.write(emitted)"), so a program compiled and
	// run through this binary (not just through Go test code) can be
	// observed producing bytecode. Only on a successful run, matching the
	// reference: an aborted run never reaches that write.
	if runErr == nil {
		if emitted := m.Emitted(); emitted != "" {
			fmt.Fprintln(stdout, emitted)
		}
	}

	if dump {
		lw := &logio.Writer{Logf: log.Leveledf("DUMP")}
		defer lw.Close()
		d := vm.Dumper{VM: m, Out: lw}
		if tail != nil {
			d.Trace = tail.lines
		}
		d.Dump()
		if capture.Len() > 0 {
			fmt.Fprintf(lw, "  recent stdout: %q\n", lastLines(capture.String(), traceTailSize))
		}
	}

	if flushErr := stdout.Flush(); runErr == nil {
		runErr = flushErr
	}
	return runErr
}

// lastLines returns at most n trailing non-empty lines of s, joined back
// with newlines.
func lastLines(s string, n int) string {
	all := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return strings.Join(all, "\n")
}

func runREPL(log *logio.Logger) error {
	r, err := repl.New(os.Stdout, log)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return r.Run(ctx)
}
