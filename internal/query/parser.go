package query

import (
	"fmt"
	"strings"
)

// Rule identifies the grammar rule a parse tree node was produced by.
type Rule int

const (
	RuleToken        Rule = iota // terminal, see Node.Token
	RuleQueries                  // intersection ((UNION|EXCEPT) intersection)*
	RuleIntersection             // queryFactor (INTERSECT queryFactor)*
	RuleQueryFactor              // (query | IDENT | '(' queries ')') orderBy?
	RuleQuery                    // SELECT source (WHERE predicate)?
	RuleSource                   // STRING | IDENT | '(' queries ')'
	RuleOrderBy                  // ORDER BY key (',' key)*
	RuleKey                      // expression (ASC|DESC)?
	RulePredicate                // conjunction (OR conjunction)*
	RuleConjunction              // literal (AND literal)*
	RuleLiteral                  // NOT literal | comparison
	RuleComparison               // expression (op expression)?
	RuleExpression               // term (('+'|'-') term)*
	RuleTerm                     // factor (('*'|'/') factor)*
	RuleFactor                   // '-' factor | '(' predicate ')' | literal | call | identifier
	RuleCall                     // IDENT '(' arguments ')'
)

var ruleNames = [...]string{
	RuleToken:        "token",
	RuleQueries:      "queries",
	RuleIntersection: "intersection",
	RuleQueryFactor:  "queryFactor",
	RuleQuery:        "query",
	RuleSource:       "source",
	RuleOrderBy:      "orderBy",
	RuleKey:          "key",
	RulePredicate:    "predicate",
	RuleConjunction:  "conjunction",
	RuleLiteral:      "literal",
	RuleComparison:   "comparison",
	RuleExpression:   "expression",
	RuleTerm:         "term",
	RuleFactor:       "factor",
	RuleCall:         "call",
}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// Node is a parse tree node. Terminals carry their token; rule nodes carry
// the first token of the rule and their children in source order.
// Parentheses and commas are not kept in the tree.
type Node struct {
	Rule     Rule
	Token    Token
	Children []*Node
}

// IsToken reports whether n is a terminal of type t.
func (n *Node) IsToken(t TokenType) bool {
	return n.Rule == RuleToken && n.Token.Type == t
}

// String renders the tree as an s-expression, for debugging and tests.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if n.Rule == RuleToken {
		switch n.Token.Type {
		case TokenString:
			fmt.Fprintf(sb, "%q", n.Token.Value)
		case TokenComplexID:
			sb.WriteString("`" + n.Token.Value + "`")
		default:
			sb.WriteString(n.Token.Value)
		}
		return
	}
	sb.WriteString("(" + n.Rule.String())
	for _, c := range n.Children {
		sb.WriteByte(' ')
		c.write(sb)
	}
	sb.WriteByte(')')
}

// SyntaxError is a parse or compile error at a position of the query text.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser parses query text into a parse tree.
type Parser struct {
	lexer *Lexer
	curr  Token
	peek  Token
}

// Parse parses a query string. It stops at the first error, which is
// always a *SyntaxError.
func Parse(input string) (*Node, error) {
	p := &Parser{lexer: NewLexer(input)}
	p.advance()
	p.advance()

	n, err := p.parseQueries()
	if err != nil {
		return nil, err
	}
	if p.curr.Type != TokenEOF {
		return nil, p.unexpected("end of input")
	}
	return n, nil
}

func (p *Parser) advance() {
	p.curr = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) errorAt(tok Token, format string, args ...any) error {
	return &SyntaxError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) unexpected(expected string) error {
	if p.curr.Type == TokenError {
		return p.errorAt(p.curr, "%s", p.curr.Value)
	}
	return p.errorAt(p.curr, "unexpected %s, expected %s", describe(p.curr), expected)
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return fmt.Sprintf("string %q", tok.Value)
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

func (p *Parser) expect(t TokenType) error {
	if p.curr.Type != t {
		return p.unexpected(t.String())
	}
	p.advance()
	return nil
}

// terminal consumes the current token.
func (p *Parser) terminal() *Node {
	n := &Node{Rule: RuleToken, Token: p.curr}
	p.advance()
	return n
}

func (p *Parser) rule(r Rule) *Node {
	return &Node{Rule: r, Token: p.curr}
}

// binaryChain parses operand (op operand)* keeping the operator tokens.
func (p *Parser) binaryChain(r Rule, operand func() (*Node, error), ops ...TokenType) (*Node, error) {
	n := p.rule(r)
	first, err := operand()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, first)
	for p.is(ops...) {
		n.Children = append(n.Children, p.terminal())
		next, err := operand()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, next)
	}
	return n, nil
}

func (p *Parser) is(types ...TokenType) bool {
	for _, t := range types {
		if p.curr.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) parseQueries() (*Node, error) {
	return p.binaryChain(RuleQueries, p.parseIntersection, TokenUnion, TokenExcept)
}

func (p *Parser) parseIntersection() (*Node, error) {
	return p.binaryChain(RuleIntersection, p.parseQueryFactor, TokenIntersect)
}

func (p *Parser) parseQueryFactor() (*Node, error) {
	n := p.rule(RuleQueryFactor)
	switch p.curr.Type {
	case TokenSelect:
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, q)
	case TokenIdent:
		n.Children = append(n.Children, p.terminal())
	case TokenLParen:
		sub, err := p.parenthesized(p.parseQueries)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, sub)
	default:
		return nil, p.unexpected("SELECT, a view name or '('")
	}

	if p.curr.Type == TokenOrder {
		order, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, order)
	}
	return n, nil
}

func (p *Parser) parenthesized(inner func() (*Node, error)) (*Node, error) {
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	n, err := inner()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseQuery() (*Node, error) {
	n := p.rule(RuleQuery)
	if err := p.expect(TokenSelect); err != nil {
		return nil, err
	}

	source := p.rule(RuleSource)
	switch p.curr.Type {
	case TokenString, TokenIdent:
		source.Children = append(source.Children, p.terminal())
	case TokenLParen:
		sub, err := p.parenthesized(p.parseQueries)
		if err != nil {
			return nil, err
		}
		source.Children = append(source.Children, sub)
	default:
		return nil, p.unexpected("a path pattern, a view name or '('")
	}
	n.Children = append(n.Children, source)

	if p.curr.Type == TokenWhere {
		p.advance()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, pred)
	}
	return n, nil
}

func (p *Parser) parseOrderBy() (*Node, error) {
	n := p.rule(RuleOrderBy)
	if err := p.expect(TokenOrder); err != nil {
		return nil, err
	}
	if err := p.expect(TokenBy); err != nil {
		return nil, err
	}
	for {
		key := p.rule(RuleKey)
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		key.Children = append(key.Children, e)
		if p.is(TokenAsc, TokenDesc) {
			key.Children = append(key.Children, p.terminal())
		}
		n.Children = append(n.Children, key)

		if p.curr.Type != TokenComma {
			return n, nil
		}
		p.advance()
	}
}

func (p *Parser) parsePredicate() (*Node, error) {
	return p.binaryChain(RulePredicate, p.parseConjunction, TokenOr)
}

func (p *Parser) parseConjunction() (*Node, error) {
	return p.binaryChain(RuleConjunction, p.parseLiteral, TokenAnd)
}

func (p *Parser) parseLiteral() (*Node, error) {
	n := p.rule(RuleLiteral)
	if p.curr.Type == TokenNot {
		n.Children = append(n.Children, p.terminal())
		inner, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, inner)
		return n, nil
	}
	cmp, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, cmp)
	return n, nil
}

func (p *Parser) parseComparison() (*Node, error) {
	n := p.rule(RuleComparison)
	left, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, left)
	if p.is(TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe) {
		n.Children = append(n.Children, p.terminal())
		right, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, right)
	}
	return n, nil
}

func (p *Parser) parseExpression() (*Node, error) {
	return p.binaryChain(RuleExpression, p.parseTerm, TokenPlus, TokenMinus)
}

func (p *Parser) parseTerm() (*Node, error) {
	return p.binaryChain(RuleTerm, p.parseFactor, TokenStar, TokenSlash)
}

func (p *Parser) parseFactor() (*Node, error) {
	n := p.rule(RuleFactor)
	switch p.curr.Type {
	case TokenMinus:
		n.Children = append(n.Children, p.terminal())
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, inner)

	case TokenLParen:
		pred, err := p.parenthesized(p.parsePredicate)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, pred)

	case TokenInt, TokenReal, TokenString, TokenComplexID:
		n.Children = append(n.Children, p.terminal())

	case TokenIdent:
		if p.peek.Type != TokenLParen {
			n.Children = append(n.Children, p.terminal())
			break
		}
		call, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, call)

	default:
		return nil, p.unexpected("an expression")
	}
	return n, nil
}

func (p *Parser) parseCall() (*Node, error) {
	n := p.rule(RuleCall)
	n.Children = append(n.Children, p.terminal())
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	if p.curr.Type == TokenRParen {
		p.advance()
		return n, nil
	}
	for {
		arg, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, arg)
		if p.curr.Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return n, nil
}
