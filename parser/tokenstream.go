package parser

import (
	"github.com/skx/ssmpl/lexer"
	"github.com/skx/ssmpl/token"
)

// tokenStream wraps a Lexer with a single token of lookahead, which the
// argument-form parsing (`drop(n)`, `mem(name)`, ...) needs to decide
// whether an optional `(` follows.
type tokenStream struct {
	lx  *lexer.Lexer
	buf *token.Token
}

func newTokenStream(lx *lexer.Lexer) *tokenStream {
	return &tokenStream{lx: lx}
}

func (t *tokenStream) Next() token.Token {
	if t.buf != nil {
		tok := *t.buf
		t.buf = nil
		return tok
	}
	return t.lx.Next()
}

func (t *tokenStream) Peek() token.Token {
	if t.buf == nil {
		tok := t.lx.Next()
		t.buf = &tok
	}
	return *t.buf
}
