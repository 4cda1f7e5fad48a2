package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenEOF       TokenType = iota
	TokenIdent               // plain identifier: camera, f_number
	TokenComplexID           // back-quoted identifier: `camera model`
	TokenString              // "double quoted", backslash escapes " and \
	TokenInt                 // 42
	TokenReal                // 4.2
	TokenLParen              // (
	TokenRParen              // )
	TokenComma               // ,
	TokenPlus                // +
	TokenMinus               // -
	TokenStar                // *
	TokenSlash               // /
	TokenEq                  // =
	TokenNe                  // <> or !=
	TokenLt                  // <
	TokenLe                  // <=
	TokenGt                  // >
	TokenGe                  // >=

	// keywords, matched case-insensitively
	TokenSelect
	TokenWhere
	TokenOrder
	TokenBy
	TokenAsc
	TokenDesc
	TokenUnion
	TokenExcept
	TokenIntersect
	TokenAnd
	TokenOr
	TokenNot

	TokenError // Value holds the error message
)

var keywords = map[string]TokenType{
	"select":    TokenSelect,
	"where":     TokenWhere,
	"order":     TokenOrder,
	"by":        TokenBy,
	"asc":       TokenAsc,
	"desc":      TokenDesc,
	"union":     TokenUnion,
	"except":    TokenExcept,
	"intersect": TokenIntersect,
	"and":       TokenAnd,
	"or":        TokenOr,
	"not":       TokenNot,
}

var tokenNames = map[TokenType]string{
	TokenEOF:       "end of input",
	TokenIdent:     "identifier",
	TokenComplexID: "identifier",
	TokenString:    "string",
	TokenInt:       "integer",
	TokenReal:      "number",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenComma:     "','",
	TokenNe:        "'<>'",
	TokenError:     "invalid token",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for word, kw := range keywords {
		if kw == t {
			return strings.ToUpper(word)
		}
	}
	for op, tt := range operators {
		if tt == t {
			return "'" + op + "'"
		}
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokenSelect && t <= TokenNot
}

var operators = map[string]TokenType{
	"+":  TokenPlus,
	"-":  TokenMinus,
	"*":  TokenStar,
	"/":  TokenSlash,
	"=":  TokenEq,
	"<>": TokenNe,
	"!=": TokenNe,
	"<":  TokenLt,
	"<=": TokenLe,
	">":  TokenGt,
	">=": TokenGe,
}

// Token represents a lexer token. Value is the decoded text: strings and
// complex identifiers without their quotes and escapes.
type Token struct {
	Type   TokenType
	Value  string
	Pos    int // byte offset
	Line   int // 1-based
	Column int // 1-based, in runes
}

// Lexer tokenizes a query string.
type Lexer struct {
	input     string
	pos       int
	line      int
	lineStart int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	tok := Token{Pos: l.pos, Line: l.line, Column: utf8.RuneCountInString(l.input[l.lineStart:l.pos]) + 1}
	if l.pos >= len(l.input) {
		tok.Type = TokenEOF
		return tok
	}

	ch := l.input[l.pos]
	switch {
	case ch == '(':
		l.pos++
		tok.Type, tok.Value = TokenLParen, "("
	case ch == ')':
		l.pos++
		tok.Type, tok.Value = TokenRParen, ")"
	case ch == ',':
		l.pos++
		tok.Type, tok.Value = TokenComma, ","
	case ch == '"':
		tok.Type, tok.Value = l.scanString()
	case ch == '`':
		tok.Type, tok.Value = l.scanComplexID()
	case ch >= '0' && ch <= '9':
		tok.Type, tok.Value = l.scanNumber()
	case isIdentStart(ch):
		tok.Value = l.scanIdent()
		tok.Type = TokenIdent
		if kw, ok := keywords[strings.ToLower(tok.Value)]; ok {
			tok.Type = kw
		}
	default:
		if op, ok := l.scanOperator(); ok {
			tok.Type, tok.Value = operators[op], op
			return tok
		}
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		l.pos += size
		tok.Type, tok.Value = TokenError, fmt.Sprintf("unexpected character %q", r)
	}
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\n':
			l.pos++
			l.line++
			l.lineStart = l.pos
		case unicode.IsSpace(rune(ch)):
			l.pos++
		case strings.HasPrefix(l.input[l.pos:], "--"):
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanOperator() (string, bool) {
	if l.pos+1 < len(l.input) {
		if _, ok := operators[l.input[l.pos:l.pos+2]]; ok {
			op := l.input[l.pos : l.pos+2]
			l.pos += 2
			return op, true
		}
	}
	op := l.input[l.pos : l.pos+1]
	if _, ok := operators[op]; ok {
		l.pos++
		return op, true
	}
	return "", false
}

func (l *Lexer) scanIdent() string {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	return l.input[start:l.pos]
}

func (l *Lexer) scanNumber() (TokenType, string) {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		return TokenReal, l.input[start:l.pos]
	}
	return TokenInt, l.input[start:l.pos]
}

// scanString reads a double-quoted string. A backslash escapes a quote or
// another backslash and is kept literally before any other character, so
// Windows paths need no escaping.
func (l *Lexer) scanString() (TokenType, string) {
	var sb strings.Builder
	l.pos++ // opening quote
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '"':
			l.pos++
			return TokenString, sb.String()
		case ch == '\\' && l.pos+1 < len(l.input) && (l.input[l.pos+1] == '"' || l.input[l.pos+1] == '\\'):
			sb.WriteByte(l.input[l.pos+1])
			l.pos += 2
		case ch == '\n':
			return TokenError, "unterminated string"
		default:
			sb.WriteByte(ch)
			l.pos++
		}
	}
	return TokenError, "unterminated string"
}

// scanComplexID reads a back-quoted identifier. A doubled back quote stands
// for one.
func (l *Lexer) scanComplexID() (TokenType, string) {
	var sb strings.Builder
	l.pos++
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '`' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '`' {
				sb.WriteByte('`')
				l.pos += 2
				continue
			}
			l.pos++
			if sb.Len() == 0 {
				return TokenError, "empty identifier"
			}
			return TokenComplexID, sb.String()
		}
		if ch == '\n' {
			break
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return TokenError, "unterminated identifier"
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
