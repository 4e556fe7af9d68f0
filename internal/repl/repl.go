// Package repl implements TinyLisp's interactive front end: one compiled
// and run form at a time against a single VM whose global frame survives
// across lines, per spec section 8's REPL scenario.
//
// Grounded on informatter-nilan's cmd_repl.go for the read-compile-run loop
// shape (adapted here from its bufio.Scanner version to chzyer/readline,
// the dependency nilan itself carries in its go.mod for line editing).
// golang.org/x/sync/errgroup joins the readline-driven input loop with the
// evaluation loop, mirroring jcorbin-gothird/scripts/gen_vm_expects.go's
// own direct use of errgroup.
package repl

import (
	"context"
	"io"

	"github.com/chzyer/readline"
	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/tinylisp/internal/compiler"
	"github.com/jcorbin/tinylisp/internal/flushio"
	"github.com/jcorbin/tinylisp/internal/lexer"
	"github.com/jcorbin/tinylisp/internal/logio"
	"github.com/jcorbin/tinylisp/internal/reader"
	"github.com/jcorbin/tinylisp/internal/vm"
)

const prompt = "tinylisp> "

// REPL drives a single persistent VM from interactively entered forms.
type REPL struct {
	rl  *readline.Instance
	vm  *vm.VM
	out flushio.WriteFlusher
	log *logio.Logger
}

// New constructs a REPL reading from and writing to the given streams.
// log receives one ERROR line per failed form rather than aborting the
// session, so a single bad `(` doesn't end the interactive session. out is
// wrapped in a flushio.WriteFlusher so each form's PRINT output is flushed
// to the terminal before the next prompt is drawn, the same buffered-then-
// flush discipline jcorbin-gothird applies to its own CLI output.
func New(out io.Writer, log *logio.Logger) (*REPL, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	wf := flushio.NewWriteFlusher(out)
	return &REPL{
		rl:  rl,
		vm:  vm.New(vm.WithStdout(wf)),
		out: wf,
		log: log,
	}, nil
}

// Close releases the underlying line editor.
func (r *REPL) Close() error { return r.rl.Close() }

// Run drives the session until EOF (Ctrl-D) or the given context is
// canceled. A read goroutine accumulates lines into balanced top-level
// forms and hands them to an eval goroutine over a channel; errgroup ties
// their lifetimes together so either side's exit (EOF, ctx cancellation)
// tears down the other.
func (r *REPL) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	forms := make(chan string)

	g.Go(func() error {
		defer close(forms)
		return r.readLoop(ctx, forms)
	})
	g.Go(func() error {
		return r.evalLoop(ctx, forms)
	})

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// readLoop reads lines until the accumulated buffer parses as one or more
// balanced, non-empty top-level forms, then sends that source text to
// forms. Tokenizing errors (e.g. a stray unmatched character) are reported
// immediately and the buffer is discarded, rather than accumulating
// forever.
func (r *REPL) readLoop(ctx context.Context, forms chan<- string) error {
	var buf string
	for {
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			buf = ""
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if buf != "" {
			buf += "\n"
		}
		buf += line

		depth, tokErr := parenDepth(buf)
		if tokErr != nil {
			r.log.Errorf("%v", tokErr)
			buf = ""
			continue
		}
		if depth > 0 {
			continue // keep accumulating an unclosed form
		}
		text := buf
		buf = ""
		if len(text) == 0 {
			continue
		}

		select {
		case forms <- text:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// evalLoop compiles and runs each accumulated form's source against the
// session's single persistent VM.
func (r *REPL) evalLoop(ctx context.Context, forms <-chan string) error {
	for {
		select {
		case text, ok := <-forms:
			if !ok {
				return nil
			}
			r.evalOne(text)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *REPL) evalOne(src string) {
	defer r.out.Flush()

	topForms, err := reader.Read(src)
	if err != nil {
		r.log.Errorf("%v", err)
		return
	}
	bc, err := compiler.Compile(topForms)
	if err != nil {
		r.log.Errorf("%v", err)
		return
	}
	if err := r.vm.Run(bc); err != nil {
		r.log.Errorf("%v", err)
	}
}

// parenDepth reports how many more ")" the buffer needs before it contains
// only balanced top-level forms. A non-nil error means the buffer doesn't
// tokenize at all (not merely unclosed).
func parenDepth(src string) (int, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return 0, err
	}
	depth := 0
	for _, t := range toks {
		switch t.Kind {
		case lexer.LPAREN:
			depth++
		case lexer.RPAREN:
			depth--
		}
	}
	return depth, nil
}
