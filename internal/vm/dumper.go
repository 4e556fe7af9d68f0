package vm

import (
	"fmt"
	"io"
)

// Dumper renders a post-run snapshot of a VM for the CLI's `-dump` mode,
// grounded on jcorbin-gothird's vmDumper (dumper.go): a plain-text report of
// program size, the operand stack, frame depth, and (here, TinyLisp-
// specific) the emit buffer a self-hosted compiler writes through. Trace,
// when the caller was also running with `-trace`, holds the most recently
// formatted dispatch lines (teacher's main.go pipes trace output through a
// log.Wrap scanner for a similar purpose).
type Dumper struct {
	VM    *VM
	Out   io.Writer
	Trace []string
}

// Dump writes the report. Safe to call after Run returns an error: every
// field it reads reflects however far dispatch got before halting.
func (d Dumper) Dump() {
	fmt.Fprintf(d.Out, "# VM Dump\n")
	if d.VM.prog != nil {
		fmt.Fprintf(d.Out, "  instructions: %d\n", d.VM.prog.Len())
	}
	fmt.Fprintf(d.Out, "  steps: %d\n", d.VM.steps)
	fmt.Fprintf(d.Out, "  ip: %d\n", d.VM.ip)
	fmt.Fprintf(d.Out, "  stack: %v\n", d.VM.stack)
	fmt.Fprintf(d.Out, "  frames: %d\n", len(d.VM.frames))
	fmt.Fprintf(d.Out, "  callstack depth: %d\n", len(d.VM.callstack))
	if n := len(d.VM.emitted); n > 0 {
		fmt.Fprintf(d.Out, "  emitted: %d line(s)\n", n)
	}
	if len(d.Trace) > 0 {
		fmt.Fprintf(d.Out, "  recent trace:\n")
		for _, line := range d.Trace {
			fmt.Fprintf(d.Out, "    %s\n", line)
		}
	}
}
