package lexer

import (
	"strings"
	"testing"

	"github.com/skx/ssmpl/token"
)

func TestNumbers(t *testing.T) {
	input := `3 43 -17 3.5 -2.25 0x1F 0b101`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.INT, "3"},
		{token.INT, "43"},
		{token.INT, "-17"},
		{token.FLOAT, "3.5"},
		{token.FLOAT, "-2.25"},
		{token.INT, "0x1F"},
		{token.INT, "0b101"},
		{token.EOF, ""},
	}

	l := New("test.ssmpl", input)
	for i, tt := range tests {
		tok := l.Next()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d]: type wrong, expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d]: literal wrong, expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `+ - * / % ++ -- == != < > <= >= << >> & && | || !`

	tests := []token.Type{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.INCR, token.DECR,
		token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE,
		token.SHL, token.SHR,
		token.BITAND, token.AND, token.BITOR, token.OR, token.BANG,
		token.EOF,
	}

	l := New("test.ssmpl", input)
	for i, want := range tests {
		tok := l.Next()
		if tok.Type != want {
			t.Fatalf("tests[%d]: expected=%q, got=%q (literal %q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestLoadStoreWidths(t *testing.T) {
	input := `<|8 <|16 <|32 <|64 |>8 |>16 |>32 |>64`

	tests := []token.Type{
		token.LOAD8, token.LOAD16, token.LOAD32, token.LOAD64,
		token.STORE8, token.STORE16, token.STORE32, token.STORE64,
		token.EOF,
	}

	l := New("test.ssmpl", input)
	for i, want := range tests {
		tok := l.Next()
		if tok.Type != want {
			t.Fatalf("tests[%d]: expected=%q, got=%q", i, want, tok.Type)
		}
	}
}

func TestStringAndCharLiterals(t *testing.T) {
	input := `"hello\nworld" 'a' '\n'`

	l := New("test.ssmpl", input)

	str := l.Next()
	if str.Type != token.STRING || str.Literal != "hello\nworld" {
		t.Fatalf("expected an escaped string literal, got %q %q", str.Type, str.Literal)
	}

	ch := l.Next()
	if ch.Type != token.INT || ch.Literal != "97" {
		t.Fatalf("expected 'a' to lex as the integer 97, got %q %q", ch.Type, ch.Literal)
	}

	nl := l.Next()
	if nl.Type != token.INT || nl.Literal != "10" {
		t.Fatalf("expected '\\n' to lex as the integer 10, got %q %q", nl.Type, nl.Literal)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	input := `if then else end while do dup(2) drop over swap dump macro foo include mem cast syscall argc argv true false I64 F64 Bool Ptr notakeyword`

	l := New("test.ssmpl", input)

	var got []token.Type
	for {
		tok := l.Next()
		got = append(got, tok.Type)
		if tok.Type == token.EOF {
			break
		}
	}

	wantLast := token.IDENT
	if got[len(got)-2] != wantLast {
		t.Fatalf("expected the final identifier to lex as IDENT, got %q", got[len(got)-2])
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	input := "1 // a line comment\n2 /* a block\ncomment */ 3"

	tests := []token.Type{token.INT, token.INT, token.INT, token.EOF}

	l := New("test.ssmpl", input)
	for i, want := range tests {
		tok := l.Next()
		if tok.Type != want {
			t.Fatalf("tests[%d]: expected=%q, got=%q", i, want, tok.Type)
		}
	}
}

func TestPositionTracking(t *testing.T) {
	input := "1\n2"

	l := New("test.ssmpl", input)
	first := l.Next()
	second := l.Next()

	if first.Pos.Line != 1 {
		t.Errorf("expected the first token on line 1, got %d", first.Pos.Line)
	}
	if second.Pos.Line != 2 {
		t.Errorf("expected the second token on line 2, got %d", second.Pos.Line)
	}
}

// TestRoundTripStability lexes a source, joins the token literals back
// with single spaces, lexes the result again, and expects an identical
// token sequence -- lexing is a fixpoint modulo whitespace and comments.
func TestRoundTripStability(t *testing.T) {
	input := "1 2.5 -3 0x1F + - dup ( 3 ) if then else end while do << >> <|8 |>16 mem cast I64 my_macro"

	first := collect(t, input)

	var words []string
	for _, tok := range first {
		if tok.Type == token.EOF {
			break
		}
		words = append(words, tok.Literal)
	}

	second := collect(t, strings.Join(words, " "))

	if len(first) != len(second) {
		t.Fatalf("round trip changed token count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Type != second[i].Type || first[i].Literal != second[i].Literal {
			t.Errorf("token %d: %q %q != %q %q",
				i, first[i].Type, first[i].Literal, second[i].Type, second[i].Literal)
		}
	}
}

func collect(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New("test.ssmpl", input)
	var out []token.Token
	for {
		tok := l.Next()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}
