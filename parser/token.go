package parser

import "fmt"

// TokenKind classifies lexer output.
type TokenKind int

// Token kinds.
const (
	EOF TokenKind = iota
	IDENT
	QUOTED_IDENT
	STRING
	NUMBER
	NAMED_PARAM  // :name or :name$Type, Text holds everything after the colon
	DOLLAR_PARAM // $N, Text holds the digits
	QUESTION     // ?
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	COMMA
	DOT
	SEMICOLON
	OP // operators: = <> != < > <= >= + - * / % || ::
)

var kindNames = map[TokenKind]string{
	EOF:          "end of input",
	IDENT:        "identifier",
	QUOTED_IDENT: "quoted identifier",
	STRING:       "string",
	NUMBER:       "number",
	NAMED_PARAM:  "named placeholder",
	DOLLAR_PARAM: "positional placeholder",
	QUESTION:     "?",
	LPAREN:       "(",
	RPAREN:       ")",
	LBRACKET:     "[",
	RBRACKET:     "]",
	COMMA:        ",",
	DOT:          ".",
	SEMICOLON:    ";",
	OP:           "operator",
}

// String returns a readable kind name for error messages.
func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is a single lexical element with its byte offset in the input.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

func (t Token) describe() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case IDENT, QUOTED_IDENT, STRING, NUMBER, OP:
		return fmt.Sprintf("%q", t.Text)
	case NAMED_PARAM:
		return fmt.Sprintf("%q", ":"+t.Text)
	case DOLLAR_PARAM:
		return fmt.Sprintf("%q", "$"+t.Text)
	default:
		return t.Kind.String()
	}
}
