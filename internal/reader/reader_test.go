package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/jcorbin/tinylisp/internal/value"
)

func TestReadAtoms(t *testing.T) {
	forms, err := Read(`42 "hi" foo`)
	assert.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(42), value.Str("hi"), value.Sym("foo")}, forms)
}

func TestReadNestedList(t *testing.T) {
	forms, err := Read(`(define (fact n) (if (== n 0) 1 (* n (fact (- n 1)))))`)
	assert.NoError(t, err)
	assert.Len(t, forms, 1)
	assert.True(t, forms[0].IsPair())
}

func TestReadUnclosedParen(t *testing.T) {
	_, err := Read(`(+ 1 2`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Unclosed")
}

func TestReadEmptyListIsPrintedThenReparsed(t *testing.T) {
	forms, err := Read(`()`)
	assert.NoError(t, err)
	assert.Len(t, forms, 1)
	assert.True(t, forms[0].IsNull())

	reparsed, err := Read(forms[0].String())
	assert.NoError(t, err)
	assert.Len(t, reparsed, 1)
	assert.True(t, reparsed[0].IsNull())
}

// TestRoundTrip is spec section 8's lexer/reader round-trip property:
// parse(print(forms)) == forms, up to symbol identity.
func TestRoundTrip(t *testing.T) {
	src := `(define (fib n) (if (< n 2) n (+ (fib (- n 1)) (fib (- n 2)))))
(print (fib 10))
(let x "a string with \"quotes\" and \n a newline")`
	forms, err := Read(src)
	assert.NoError(t, err)

	var printed string
	for _, f := range forms {
		printed += f.String() + "\n"
	}

	forms2, err := Read(printed)
	assert.NoError(t, err)
	assert.Equal(t, len(forms), len(forms2))
	for i := range forms {
		assert.True(t, value.Equal(forms[i], forms2[i]), "form %d: %v != %v", i, forms[i], forms2[i])
	}
}

func TestReadDeeplyNested(t *testing.T) {
	depth := 1000
	src := ""
	for i := 0; i < depth; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < depth; i++ {
		src += ")"
	}
	forms, err := Read(src)
	assert.NoError(t, err)
	assert.Len(t, forms, 1)
}
