// Package parser converts a token stream into a flat ops.Program,
// expanding user-defined macros and resolving `include` directives along
// the way.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skx/ssmpl/lexer"
	"github.com/skx/ssmpl/ops"
	"github.com/skx/ssmpl/reporter"
	"github.com/skx/ssmpl/syscalls"
	"github.com/skx/ssmpl/token"
)

// Parser walks tokens from one or more files (following `include`
// directives) into a single ops.Program. Macros are dynamically scoped in
// a simplified sense: a single macro table is threaded through the whole
// parse, so a macro defined in an included file is visible both to its
// includer and to files included afterwards -- the parser never "pops"
// definitions when leaving a file.
type Parser struct {
	prog     *ops.Program
	macros   map[string][]ops.Op
	included map[string]bool
	rep      *reporter.Reporter
}

// New returns a Parser that reports lexical/parse errors through rep.
func New(rep *reporter.Reporter) *Parser {
	return &Parser{
		prog:     ops.NewProgram(),
		macros:   make(map[string][]ops.Op),
		included: make(map[string]bool),
		rep:      rep,
	}
}

// ParseFile parses path (and anything it includes) and returns the
// resulting Program. On any fatal lexical or parse error it reports
// through the Reporter and exits the process; parse errors are never
// recovered from.
func (p *Parser) ParseFile(path string) (*ops.Program, error) {
	if err := p.parseFile(path); err != nil {
		p.rep.Fatal("%s", err)
	}
	return p.prog, nil
}

func (p *Parser) parseFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("could not resolve path %q: %w", path, err)
	}
	// Cycle/duplicate-include guard: canonicalized paths, compared as
	// strings, so two spellings of the same file are one include.
	if p.included[abs] {
		return nil
	}
	p.included[abs] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read include %q: %w", path, err)
	}

	lx := lexer.New(path, string(data))
	ts := newTokenStream(lx)

	body, err := p.parseStream(ts, false)
	if err != nil {
		return err
	}
	p.prog.Ops = append(p.prog.Ops, body...)
	return nil
}

// parseStream consumes tokens until EOF (inMacro == false) or a closing
// `}` (inMacro == true), expanding macro references and includes inline,
// and returns the flat Op sequence it built.
func (p *Parser) parseStream(ts *tokenStream, inMacro bool) ([]ops.Op, error) {
	var out []ops.Op

	for {
		tok := ts.Next()

		switch tok.Type {
		case token.EOF:
			if inMacro {
				return nil, fmt.Errorf("%s: unterminated macro body", tok.Pos)
			}
			return out, nil

		case token.RBRACE:
			if !inMacro {
				return nil, fmt.Errorf("%s: unexpected '}'", tok.Pos)
			}
			return out, nil

		case token.MACRO:
			if inMacro {
				return nil, fmt.Errorf("%s: nested macro definitions are not allowed", tok.Pos)
			}
			if err := p.parseMacroDef(ts); err != nil {
				return nil, err
			}

		case token.INCLUDE:
			if inMacro {
				return nil, fmt.Errorf("%s: include is not allowed inside a macro body", tok.Pos)
			}
			pathTok := ts.Next()
			if pathTok.Type != token.STRING {
				return nil, fmt.Errorf("%s: include expects a string path", pathTok.Pos)
			}
			if err := p.parseFile(pathTok.Literal); err != nil {
				return nil, err
			}

		case token.IDENT:
			body, ok := p.macros[tok.Literal]
			if !ok {
				return nil, fmt.Errorf("%s: undefined macro %q", tok.Pos, tok.Literal)
			}
			// A fresh copy: Op is a plain value struct, so appending
			// copies each element.
			out = append(out, body...)

		default:
			op, err := p.parseOp(tok, ts)
			if err != nil {
				return nil, err
			}
			if op != nil {
				out = append(out, *op)
			}
		}
	}
}

// parseMacroDef parses `NAME { ... }` after the `macro` keyword has been
// consumed. A duplicate macro name silently overwrites the earlier
// definition (see DESIGN.md).
func (p *Parser) parseMacroDef(ts *tokenStream) error {
	nameTok := ts.Next()
	if nameTok.Type != token.IDENT {
		return fmt.Errorf("%s: expected macro name, got %s", nameTok.Pos, nameTok.Type)
	}
	open := ts.Next()
	if open.Type != token.LBRACE {
		return fmt.Errorf("%s: expected '{' to open macro body", open.Pos)
	}
	body, err := p.parseStream(ts, true)
	if err != nil {
		return err
	}
	p.macros[nameTok.Literal] = body
	return nil
}

// parseOp translates a single already-consumed token (never MACRO,
// INCLUDE or IDENT -- those are handled by the caller) into zero or one
// Op, consuming any required parenthesized arguments.
func (p *Parser) parseOp(tok token.Token, ts *tokenStream) (*ops.Op, error) {
	pos := tok.Pos

	switch tok.Type {
	case token.INT:
		v, err := parseIntLiteral(tok.Literal)
		if err != nil {
			return nil, fmt.Errorf("%s: malformed integer literal %q: %w", pos, tok.Literal, err)
		}
		return &ops.Op{Kind: ops.PushI, Pos: pos, IVal: v}, nil

	case token.FLOAT:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: malformed float literal %q: %w", pos, tok.Literal, err)
		}
		return &ops.Op{Kind: ops.PushF, Pos: pos, FVal: v}, nil

	case token.BOOL:
		return &ops.Op{Kind: ops.PushB, Pos: pos, BVal: tok.Literal == "true"}, nil

	case token.STRING:
		idx := p.prog.InternString(tok.Literal)
		return &ops.Op{Kind: ops.PushStr, Pos: pos, StrIndex: idx}, nil

	case token.PLUS:
		return &ops.Op{Kind: ops.Add, Pos: pos}, nil
	case token.MINUS:
		return &ops.Op{Kind: ops.Sub, Pos: pos}, nil
	case token.ASTERISK:
		return &ops.Op{Kind: ops.Mul, Pos: pos}, nil
	case token.SLASH:
		return &ops.Op{Kind: ops.Div, Pos: pos}, nil
	case token.PERCENT:
		return &ops.Op{Kind: ops.Mod, Pos: pos}, nil
	case token.INCR:
		return &ops.Op{Kind: ops.Increment, Pos: pos}, nil
	case token.DECR:
		return &ops.Op{Kind: ops.Decrement, Pos: pos}, nil

	case token.EQ:
		return &ops.Op{Kind: ops.Eq, Pos: pos}, nil
	case token.NE:
		return &ops.Op{Kind: ops.Ne, Pos: pos}, nil
	case token.LT:
		return &ops.Op{Kind: ops.Lt, Pos: pos}, nil
	case token.GT:
		return &ops.Op{Kind: ops.Gt, Pos: pos}, nil
	case token.LE:
		return &ops.Op{Kind: ops.Le, Pos: pos}, nil
	case token.GE:
		return &ops.Op{Kind: ops.Ge, Pos: pos}, nil

	case token.SHL:
		return &ops.Op{Kind: ops.ShiftL, Pos: pos}, nil
	case token.SHR:
		return &ops.Op{Kind: ops.ShiftR, Pos: pos}, nil
	case token.BITAND:
		return &ops.Op{Kind: ops.BitAnd, Pos: pos}, nil
	case token.BITOR:
		return &ops.Op{Kind: ops.BitOr, Pos: pos}, nil
	case token.AND:
		return &ops.Op{Kind: ops.LogAnd, Pos: pos}, nil
	case token.OR:
		return &ops.Op{Kind: ops.LogOr, Pos: pos}, nil
	case token.BANG:
		return &ops.Op{Kind: ops.Not, Pos: pos}, nil

	case token.LOAD8:
		return &ops.Op{Kind: ops.Load, Pos: pos, Width: 8}, nil
	case token.LOAD16:
		return &ops.Op{Kind: ops.Load, Pos: pos, Width: 16}, nil
	case token.LOAD32:
		return &ops.Op{Kind: ops.Load, Pos: pos, Width: 32}, nil
	case token.LOAD64:
		return &ops.Op{Kind: ops.Load, Pos: pos, Width: 64}, nil
	case token.STORE8:
		return &ops.Op{Kind: ops.Store, Pos: pos, Width: 8}, nil
	case token.STORE16:
		return &ops.Op{Kind: ops.Store, Pos: pos, Width: 16}, nil
	case token.STORE32:
		return &ops.Op{Kind: ops.Store, Pos: pos, Width: 32}, nil
	case token.STORE64:
		return &ops.Op{Kind: ops.Store, Pos: pos, Width: 64}, nil

	case token.SWAP:
		return &ops.Op{Kind: ops.Swap, Pos: pos}, nil
	case token.DUMP:
		return &ops.Op{Kind: ops.Dump, Pos: pos}, nil

	case token.DROP:
		n, err := p.parseOptionalCount(ts)
		if err != nil {
			return nil, err
		}
		return &ops.Op{Kind: ops.Drop, Pos: pos, N: n}, nil
	case token.DUP:
		n, err := p.parseOptionalCount(ts)
		if err != nil {
			return nil, err
		}
		return &ops.Op{Kind: ops.Dup, Pos: pos, N: n}, nil
	case token.OVER:
		n, err := p.parseOptionalCount(ts)
		if err != nil {
			return nil, err
		}
		return &ops.Op{Kind: ops.Over, Pos: pos, N: n}, nil

	case token.CAST:
		t, err := p.parseCastType(ts)
		if err != nil {
			return nil, err
		}
		return &ops.Op{Kind: ops.Cast, Pos: pos, CastType: t}, nil

	case token.MEM:
		return p.parseMem(ts, pos)

	case token.SYSCALL:
		code, argc, err := p.parseSyscall(ts)
		if err != nil {
			return nil, err
		}
		return &ops.Op{Kind: ops.Syscall, Pos: pos, SyscallCode: code, SyscallArgc: argc}, nil

	case token.ARGC:
		return &ops.Op{Kind: ops.Argc, Pos: pos}, nil
	case token.ARGV:
		return &ops.Op{Kind: ops.Argv, Pos: pos}, nil

	case token.IF:
		return &ops.Op{Kind: ops.If, Pos: pos}, nil
	case token.THEN:
		return &ops.Op{Kind: ops.Then, Pos: pos}, nil
	case token.ELSE:
		return &ops.Op{Kind: ops.Else, Pos: pos}, nil
	case token.END:
		return &ops.Op{Kind: ops.End, Pos: pos}, nil
	case token.WHILE:
		return &ops.Op{Kind: ops.While, Pos: pos}, nil
	case token.DO:
		return &ops.Op{Kind: ops.Do, Pos: pos}, nil

	case token.ERROR:
		return nil, fmt.Errorf("%s: lexical error: %s", pos, tok.Literal)

	default:
		return nil, fmt.Errorf("%s: unexpected token %s", pos, tok.Type)
	}
}

// parseOptionalCount parses the `( N )` argument accepted by drop/dup/
// over, defaulting to 1 when absent.
func (p *Parser) parseOptionalCount(ts *tokenStream) (int, error) {
	if ts.Peek().Type != token.LPAREN {
		return 1, nil
	}
	ts.Next() // '('
	numTok := ts.Next()
	if numTok.Type != token.INT {
		return 0, fmt.Errorf("%s: expected an integer argument, got %s", numTok.Pos, numTok.Type)
	}
	n, err := strconv.Atoi(numTok.Literal)
	if err != nil {
		return 0, fmt.Errorf("%s: malformed count %q: %w", numTok.Pos, numTok.Literal, err)
	}
	closeTok := ts.Next()
	if closeTok.Type != token.RPAREN {
		return 0, fmt.Errorf("%s: expected ')', got %s", closeTok.Pos, closeTok.Type)
	}
	return n, nil
}

// parseCastType parses the required `( T )` argument to `cast`.
func (p *Parser) parseCastType(ts *tokenStream) (ops.Type, error) {
	open := ts.Next()
	if open.Type != token.LPAREN {
		return ops.Unknown, fmt.Errorf("%s: cast requires a parenthesized type argument", open.Pos)
	}
	typeTok := ts.Next()
	t, ok := typeFromToken(typeTok.Type)
	if !ok {
		return ops.Unknown, fmt.Errorf("%s: expected a type name (I64, F64, Bool, Ptr), got %s", typeTok.Pos, typeTok.Type)
	}
	closeTok := ts.Next()
	if closeTok.Type != token.RPAREN {
		return ops.Unknown, fmt.Errorf("%s: expected ')', got %s", closeTok.Pos, closeTok.Type)
	}
	return t, nil
}

func typeFromToken(t token.Type) (ops.Type, bool) {
	switch t {
	case token.TYPE_I64:
		return ops.I64, true
	case token.TYPE_F64:
		return ops.F64, true
	case token.TYPE_BOOL:
		return ops.Bool, true
	case token.TYPE_PTR:
		return ops.Ptr, true
	default:
		return ops.Unknown, false
	}
}

// parseSyscall parses the required `( code )` argument to `syscall` and
// resolves the argument count from the builtin table.
func (p *Parser) parseSyscall(ts *tokenStream) (int, int, error) {
	open := ts.Next()
	if open.Type != token.LPAREN {
		return 0, 0, fmt.Errorf("%s: syscall requires a parenthesized code argument", open.Pos)
	}
	codeTok := ts.Next()
	if codeTok.Type != token.INT {
		return 0, 0, fmt.Errorf("%s: expected a syscall number, got %s", codeTok.Pos, codeTok.Type)
	}
	code, err := strconv.Atoi(codeTok.Literal)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: malformed syscall number %q: %w", codeTok.Pos, codeTok.Literal, err)
	}
	closeTok := ts.Next()
	if closeTok.Type != token.RPAREN {
		return 0, 0, fmt.Errorf("%s: expected ')', got %s", closeTok.Pos, closeTok.Type)
	}
	argc, ok := syscalls.Argc(code)
	if !ok {
		return 0, 0, fmt.Errorf("%s: syscall number %d is out of the supported range (0..332)", codeTok.Pos, code)
	}
	return code, argc, nil
}

// parseMem parses a bare `mem`, a reference `mem(name)`, or a declaration
// `mem(name SIZE)`. The language has no comma token, so a declaration's
// size follows the name directly, separated by whitespace.
func (p *Parser) parseMem(ts *tokenStream, pos token.Position) (*ops.Op, error) {
	if ts.Peek().Type != token.LPAREN {
		return &ops.Op{Kind: ops.Mem, Pos: pos, MemName: ""}, nil
	}
	ts.Next() // '('
	nameTok := ts.Next()
	if nameTok.Type != token.IDENT {
		return nil, fmt.Errorf("%s: expected a memory region name, got %s", nameTok.Pos, nameTok.Type)
	}

	if ts.Peek().Type == token.INT {
		sizeTok := ts.Next()
		size, err := strconv.Atoi(sizeTok.Literal)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("%s: malformed memory region size %q", sizeTok.Pos, sizeTok.Literal)
		}
		if err := p.prog.DeclareMemory(nameTok.Literal, size); err != nil {
			return nil, fmt.Errorf("%s: %w", sizeTok.Pos, err)
		}
	} else {
		if _, ok := p.prog.LookupMemory(nameTok.Literal); !ok {
			return nil, fmt.Errorf("%s: reference to undeclared memory region %q", nameTok.Pos, nameTok.Literal)
		}
	}

	closeTok := ts.Next()
	if closeTok.Type != token.RPAREN {
		return nil, fmt.Errorf("%s: expected ')', got %s", closeTok.Pos, closeTok.Type)
	}
	return &ops.Op{Kind: ops.Mem, Pos: pos, MemName: nameTok.Literal}, nil
}

// parseIntLiteral resolves a lexed INT literal -- which may carry a
// leading '-' and/or a 0b/0o/0x radix prefix -- to its int64 value.
func parseIntLiteral(lit string) (int64, error) {
	neg := false
	s := lit
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var v int64
	var err error
	switch {
	case strings.HasPrefix(s, "0b"):
		v, err = strconv.ParseInt(s[2:], 2, 64)
	case strings.HasPrefix(s, "0o"):
		v, err = strconv.ParseInt(s[2:], 8, 64)
	case strings.HasPrefix(s, "0x"):
		v, err = strconv.ParseInt(s[2:], 16, 64)
	default:
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}
