package parser

import (
	"fmt"
	"strings"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/dialect"
)

// lexer scans SQL text into tokens. Backtick-quoted identifiers are accepted
// only in the MySQL dialect; double-quoted identifiers everywhere.
type lexer struct {
	d     dialect.Dialect
	input string
	pos   int
}

func newLexer(d dialect.Dialect, input string) *lexer {
	return &lexer{d: d, input: input}
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return sqlt.NewParseError(l.d.String(), pos, fmt.Sprintf(format, args...))
}

// tokens scans the whole input. It fails on the first lexical error.
func (l *lexer) tokens() ([]Token, error) {
	var out []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == EOF {
			return out, nil
		}
	}
}

func (l *lexer) next() (Token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Kind: EOF, Pos: start}, nil
	}
	c := l.input[l.pos]
	switch {
	case isIdentStart(c):
		return l.scanIdent(start), nil
	case c >= '0' && c <= '9':
		return l.scanNumber(start), nil
	}
	switch c {
	case '\'':
		return l.scanString(start)
	case '"':
		return l.scanQuotedIdent(start, '"')
	case '`':
		if l.d != dialect.MySQL {
			return Token{}, l.errorf(start, "backtick-quoted identifier not supported in %s", l.d)
		}
		return l.scanQuotedIdent(start, '`')
	case ':':
		return l.scanColon(start)
	case '$':
		return l.scanDollar(start)
	case '?':
		l.pos++
		return Token{Kind: QUESTION, Text: "?", Pos: start}, nil
	case '(':
		l.pos++
		return Token{Kind: LPAREN, Text: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: RPAREN, Text: ")", Pos: start}, nil
	case '[':
		l.pos++
		return Token{Kind: LBRACKET, Text: "[", Pos: start}, nil
	case ']':
		l.pos++
		return Token{Kind: RBRACKET, Text: "]", Pos: start}, nil
	case ',':
		l.pos++
		return Token{Kind: COMMA, Text: ",", Pos: start}, nil
	case '.':
		l.pos++
		return Token{Kind: DOT, Text: ".", Pos: start}, nil
	case ';':
		l.pos++
		return Token{Kind: SEMICOLON, Text: ";", Pos: start}, nil
	}
	if op, ok := l.scanOperator(); ok {
		return Token{Kind: OP, Text: op, Pos: start}, nil
	}
	return Token{}, l.errorf(start, "unexpected character %q", string(rune(c)))
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '-' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '-':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '*':
			start := l.pos
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(start, "unterminated block comment")
			}
			l.pos += 2 + end + 2
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) scanIdent(start int) Token {
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Kind: IDENT, Text: l.input[start:l.pos], Pos: start}
}

func (l *lexer) scanNumber(start int) Token {
	for l.pos < len(l.input) && (l.input[l.pos] >= '0' && l.input[l.pos] <= '9') {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.input) && (l.input[l.pos] >= '0' && l.input[l.pos] <= '9') {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		mark := l.pos
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '9' {
			for l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '9' {
				l.pos++
			}
		} else {
			l.pos = mark
		}
	}
	return Token{Kind: NUMBER, Text: l.input[start:l.pos], Pos: start}
}

// scanString scans a single-quoted string with '' as the escape for a quote.
func (l *lexer) scanString(start int) (Token, error) {
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\'' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\'' {
				b.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Kind: STRING, Text: b.String(), Pos: start}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, l.errorf(start, "unterminated string literal")
}

func (l *lexer) scanQuotedIdent(start int, quote byte) (Token, error) {
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == quote {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == quote {
				b.WriteByte(quote)
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Kind: QUOTED_IDENT, Text: b.String(), Pos: start}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, l.errorf(start, "unterminated quoted identifier")
}

// scanColon handles :: (cast operator) and :name placeholders. The character
// run after the colon may contain a $ for scalar type annotations; placeholder
// syntax itself is validated later by the extractor, not here.
func (l *lexer) scanColon(start int) (Token, error) {
	if l.pos+1 < len(l.input) && l.input[l.pos+1] == ':' {
		l.pos += 2
		return Token{Kind: OP, Text: "::", Pos: start}, nil
	}
	l.pos++
	nameStart := l.pos
	for l.pos < len(l.input) && (isIdentPart(l.input[l.pos]) || l.input[l.pos] == '$') {
		l.pos++
	}
	if l.pos == nameStart {
		return Token{}, l.errorf(start, "bare colon is not a placeholder")
	}
	return Token{Kind: NAMED_PARAM, Text: l.input[nameStart:l.pos], Pos: start}, nil
}

func (l *lexer) scanDollar(start int) (Token, error) {
	l.pos++
	numStart := l.pos
	for l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '9' {
		l.pos++
	}
	if l.pos == numStart {
		return Token{}, l.errorf(start, "expected digits after $")
	}
	return Token{Kind: DOLLAR_PARAM, Text: l.input[numStart:l.pos], Pos: start}, nil
}

var twoCharOps = []string{"<=", ">=", "<>", "!=", "||"}

func (l *lexer) scanOperator() (string, bool) {
	rest := l.input[l.pos:]
	for _, op := range twoCharOps {
		if strings.HasPrefix(rest, op) {
			l.pos += len(op)
			return op, true
		}
	}
	switch rest[0] {
	case '=', '<', '>', '+', '-', '*', '/', '%':
		l.pos++
		return rest[:1], true
	}
	return "", false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
