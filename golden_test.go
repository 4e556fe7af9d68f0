package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/tinylisp/internal/compiler"
	"github.com/jcorbin/tinylisp/internal/reader"
	"github.com/jcorbin/tinylisp/internal/vm"
)

// goldenCase pairs a testdata/*.tl fixture with its expected compiled
// bytecode and expected VM stdout, exercising the full
// read -> compile -> load -> run pipeline spec section 8 describes.
type goldenCase struct {
	name       string
	wantStdout string
}

func TestGoldenFixtures(t *testing.T) {
	cases := []goldenCase{
		{name: "factorial", wantStdout: "120\n"},
		{name: "fibonacci", wantStdout: "55\n"},
		{name: "counting", wantStdout: "0\n1\n2\n3\n4\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srcText, err := os.ReadFile("testdata/" + tc.name + ".tl")
			require.NoError(t, err)
			wantBC, err := os.ReadFile("testdata/" + tc.name + ".bc")
			require.NoError(t, err)

			forms, err := reader.Read(string(srcText))
			require.NoError(t, err)
			gotBC, err := compiler.Compile(forms)
			require.NoError(t, err)
			assert.Equal(t, strings.TrimRight(string(wantBC), "\n"), gotBC, "compiled bytecode mismatch")

			var out bytes.Buffer
			m := vm.New(vm.WithStdout(&out))
			require.NoError(t, m.Run(gotBC))
			assert.Equal(t, tc.wantStdout, out.String())

			// The checked-in golden bytecode must itself still run to the
			// same output, so a compiler regression that happens to also
			// corrupt the golden doesn't go unnoticed.
			m2 := vm.New(vm.WithStdout(&out))
			out.Reset()
			require.NoError(t, m2.Run(strings.TrimRight(string(wantBC), "\n")))
			assert.Equal(t, tc.wantStdout, out.String())
		})
	}
}
