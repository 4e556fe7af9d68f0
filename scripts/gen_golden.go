// Command gen_golden compiles every testdata/*.tl fixture to its paired
// testdata/*.bc golden file. Run by hand (go run ./scripts/gen_golden.go)
// to refresh fixtures after a compiler change; never invoked by tests,
// which check in the generated goldens and just compare against them.
//
// Grounded on jcorbin-gothird/scripts/gen_vm_expects.go: an out-of-band
// fixture generator living in scripts/, sharing its errgroup-driven
// concurrent-file-processing shape.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/tinylisp/internal/compiler"
	"github.com/jcorbin/tinylisp/internal/reader"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	sources, err := filepath.Glob("testdata/*.tl")
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, src := range sources {
		src := src
		g.Go(func() error { return genOne(src) })
	}
	return g.Wait()
}

func genOne(srcPath string) error {
	text, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	forms, err := reader.Read(string(text))
	if err != nil {
		return fmt.Errorf("%s: %w", srcPath, err)
	}
	bc, err := compiler.Compile(forms)
	if err != nil {
		return fmt.Errorf("%s: %w", srcPath, err)
	}

	bcPath := strings.TrimSuffix(srcPath, ".tl") + ".bc"
	return os.WriteFile(bcPath, []byte(bc+"\n"), 0o644)
}
