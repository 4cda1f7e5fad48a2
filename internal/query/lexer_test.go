package query

import (
	"testing"
)

func collectTokens(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		tokens []Token
	}{
		{
			name:  "keywords are case insensitive",
			input: "SeLeCt where ORDER by",
			tokens: []Token{
				{Type: TokenSelect, Value: "SeLeCt"},
				{Type: TokenWhere, Value: "where"},
				{Type: TokenOrder, Value: "ORDER"},
				{Type: TokenBy, Value: "by"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "comparison operators",
			input: "= <> != < <= > >=",
			tokens: []Token{
				{Type: TokenEq, Value: "="},
				{Type: TokenNe, Value: "<>"},
				{Type: TokenNe, Value: "!="},
				{Type: TokenLt, Value: "<"},
				{Type: TokenLe, Value: "<="},
				{Type: TokenGt, Value: ">"},
				{Type: TokenGe, Value: ">="},
				{Type: TokenEOF},
			},
		},
		{
			name:  "numbers",
			input: "42 4.25 7.",
			tokens: []Token{
				{Type: TokenInt, Value: "42"},
				{Type: TokenReal, Value: "4.25"},
				{Type: TokenInt, Value: "7"},
				{Type: TokenError, Value: "unexpected character '.'"},
			},
		},
		{
			name:  "string escapes",
			input: `"say \"hi\"" "C:\photos\\x"`,
			tokens: []Token{
				{Type: TokenString, Value: `say "hi"`},
				{Type: TokenString, Value: `C:\photos\x`},
				{Type: TokenEOF},
			},
		},
		{
			name:  "complex identifier",
			input: "`camera model` `a``b`",
			tokens: []Token{
				{Type: TokenComplexID, Value: "camera model"},
				{Type: TokenComplexID, Value: "a`b"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "comments",
			input: "a -- the rest\n- b",
			tokens: []Token{
				{Type: TokenIdent, Value: "a"},
				{Type: TokenMinus, Value: "-"},
				{Type: TokenIdent, Value: "b"},
				{Type: TokenEOF},
			},
		},
		{
			name:  "call",
			input: "lower(name),x",
			tokens: []Token{
				{Type: TokenIdent, Value: "lower"},
				{Type: TokenLParen, Value: "("},
				{Type: TokenIdent, Value: "name"},
				{Type: TokenRParen, Value: ")"},
				{Type: TokenComma, Value: ","},
				{Type: TokenIdent, Value: "x"},
				{Type: TokenEOF},
			},
		},
		{
			name:   "unterminated string",
			input:  `"abc`,
			tokens: []Token{{Type: TokenError, Value: "unterminated string"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectTokens(tt.input)
			if len(got) != len(tt.tokens) {
				t.Fatalf("got %d tokens %v, want %d", len(got), got, len(tt.tokens))
			}
			for i, want := range tt.tokens {
				if got[i].Type != want.Type {
					t.Errorf("token %d: Type = %v, want %v", i, got[i].Type, want.Type)
				}
				if got[i].Value != want.Value {
					t.Errorf("token %d: Value = %q, want %q", i, got[i].Value, want.Value)
				}
			}
		})
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := collectTokens("select \"a\"\n  where x")
	want := []struct{ line, column int }{
		{1, 1},
		{1, 8},
		{2, 3},
		{2, 9},
	}
	for i, w := range want {
		if tokens[i].Line != w.line || tokens[i].Column != w.column {
			t.Errorf("token %d (%s) at %d:%d, want %d:%d", i, tokens[i].Value, tokens[i].Line, tokens[i].Column, w.line, w.column)
		}
	}
}
