package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcorbin/tinylisp/internal/langerr"
)

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isSymStart(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	}
	switch r {
	case '_', '+', '-', '*', '/', '<', '>', '=', '!', '?':
		return true
	}
	return false
}

func isSymCont(r rune) bool {
	return isSymStart(r) || isDigit(r)
}

// Tokenize scans src into a Token slice terminated by a single EOF token,
// per spec section 4.1's lexical grammar. Whitespace and `;`-to-end-of-line
// comments are discarded, not emitted.
func Tokenize(src string) ([]Token, error) {
	runes := []rune(src)
	// bytePos tracks the UTF-8 byte offset of runes[i], for error messages
	// and Token.Pos, matching the "Unexpected character at <i>" wording
	// (original_source/vm.py reports byte offsets into the raw string).
	bytePos := make([]int, len(runes)+1)
	{
		b := 0
		for i, r := range runes {
			bytePos[i] = b
			b += len(string(r))
		}
		bytePos[len(runes)] = b
	}

	var out []Token
	i := 0
	n := len(runes)

	for i < n {
		r := runes[i]

		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' {
			i++
			continue
		}

		if r == ';' {
			for i < n && runes[i] != '\n' {
				i++
			}
			continue
		}

		start := i

		switch {
		case r == '(':
			out = append(out, Token{Kind: LPAREN, Pos: bytePos[start]})
			i++
			continue

		case r == ')':
			out = append(out, Token{Kind: RPAREN, Pos: bytePos[start]})
			i++
			continue

		case r == '"':
			s, end, err := scanString(runes, i)
			if err != nil {
				return nil, err
			}
			out = append(out, Token{Kind: STR, Str: s, Pos: bytePos[start]})
			i = end
			continue

		case r == '-' && i+1 < n && isDigit(runes[i+1]):
			j := i + 1
			for j < n && isDigit(runes[j]) {
				j++
			}
			lit := string(runes[i:j])
			v, err := strconv.Atoi(lit)
			if err != nil {
				return nil, langerr.SyntaxError{Msg: fmt.Sprintf("Unexpected character at %d: %q", bytePos[start], previewAt(runes, bytePos, start))}
			}
			out = append(out, Token{Kind: INT, Int: v, Pos: bytePos[start]})
			i = j
			continue

		case isDigit(r):
			j := i
			for j < n && isDigit(runes[j]) {
				j++
			}
			lit := string(runes[i:j])
			v, err := strconv.Atoi(lit)
			if err != nil {
				return nil, langerr.SyntaxError{Msg: fmt.Sprintf("Unexpected character at %d: %q", bytePos[start], previewAt(runes, bytePos, start))}
			}
			out = append(out, Token{Kind: INT, Int: v, Pos: bytePos[start]})
			i = j
			continue

		case isSymStart(r):
			j := i + 1
			for j < n && isSymCont(runes[j]) {
				j++
			}
			out = append(out, Token{Kind: SYM, Str: string(runes[i:j]), Pos: bytePos[start]})
			i = j
			continue

		default:
			return nil, langerr.SyntaxError{Msg: fmt.Sprintf("Unexpected character at %d: %q", bytePos[start], previewAt(runes, bytePos, start))}
		}
	}

	out = append(out, Token{Kind: EOF, Pos: bytePos[n]})
	return out, nil
}

func previewAt(runes []rune, bytePos []int, start int) string {
	end := start + 30
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}

// scanString decodes a double-quoted string literal beginning at i (which
// must index the opening quote), returning the unescaped value and the
// index just past the closing quote. Supports \n \t \\ \" \xNN \uNNNN,
// matching original_source/vm.py's _unescape_string semantics.
func scanString(runes []rune, i int) (string, int, error) {
	n := len(runes)
	start := i
	i++ // skip opening quote
	var b strings.Builder
	for i < n {
		r := runes[i]
		if r == '"' {
			return b.String(), i + 1, nil
		}
		if r == '\\' {
			i++
			if i >= n {
				return "", 0, langerr.SyntaxError{Msg: fmt.Sprintf("Unclosed string literal starting at %d", start)}
			}
			esc := runes[i]
			switch esc {
			case 'n':
				b.WriteByte('\n')
				i++
			case 't':
				b.WriteByte('\t')
				i++
			case 'r':
				b.WriteByte('\r')
				i++
			case '\\':
				b.WriteByte('\\')
				i++
			case '"':
				b.WriteByte('"')
				i++
			case 'x':
				if i+2 >= n {
					return "", 0, langerr.SyntaxError{Msg: fmt.Sprintf("Bad \\x escape at %d", i)}
				}
				v, err := strconv.ParseUint(string(runes[i+1:i+3]), 16, 8)
				if err != nil {
					return "", 0, langerr.SyntaxError{Msg: fmt.Sprintf("Bad \\x escape at %d", i)}
				}
				b.WriteByte(byte(v))
				i += 3
			case 'u':
				if i+4 >= n {
					return "", 0, langerr.SyntaxError{Msg: fmt.Sprintf("Bad \\u escape at %d", i)}
				}
				v, err := strconv.ParseUint(string(runes[i+1:i+5]), 16, 32)
				if err != nil {
					return "", 0, langerr.SyntaxError{Msg: fmt.Sprintf("Bad \\u escape at %d", i)}
				}
				b.WriteRune(rune(v))
				i += 5
			default:
				b.WriteRune(esc)
				i++
			}
			continue
		}
		b.WriteRune(r)
		i++
	}
	return "", 0, langerr.SyntaxError{Msg: fmt.Sprintf("Unclosed string literal starting at %d", start)}
}
