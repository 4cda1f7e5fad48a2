package expr

import (
	"strings"
)

// Keywords are the reserved words of the query language. An attribute
// named like a keyword is written back-quoted.
var Keywords = map[string]bool{
	"select":    true,
	"where":     true,
	"order":     true,
	"by":        true,
	"asc":       true,
	"desc":      true,
	"union":     true,
	"except":    true,
	"intersect": true,
	"and":       true,
	"or":        true,
	"not":       true,
}

// operator precedence, loosest first
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAdditive
	precMultiplicative
	precUnary
	precAtom
)

func precedence(n Node) int {
	switch n := n.(type) {
	case *Or:
		return precOr
	case *And:
		return precAnd
	case *Not:
		return precNot
	case *Binary:
		switch n.Op {
		case "+", "-":
			return precAdditive
		case "*", "/":
			return precMultiplicative
		default:
			return precCompare
		}
	case *Unary:
		return precUnary
	case *Constant:
		if n.Value.IsNumber() && n.Value.AsReal() < 0 {
			return precUnary
		}
		return precAtom
	case *Attribute, *Call:
		return precAtom
	}
	panic(unknownNode(n))
}

// Format renders n as query language source that parses back to an
// equivalent tree. Parentheses are only added where precedence requires.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

// FormatExpression renders n where the grammar expects an additive
// expression, such as an order by key. Comparisons and logical operators
// are parenthesized.
func FormatExpression(n Node) string {
	var sb strings.Builder
	operand(&sb, n, precAdditive)
	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Constant:
		sb.WriteString(n.Value.Literal())

	case *Attribute:
		sb.WriteString(Identifier(n.Name))

	case *Call:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, arg)
		}
		sb.WriteByte(')')

	case *Binary:
		p := precedence(n)
		left, right := p, p+1
		if p == precCompare {
			left = precAdditive
			right = precAdditive
		}
		operand(sb, n.Left, left)
		sb.WriteByte(' ')
		sb.WriteString(n.Op)
		sb.WriteByte(' ')
		operand(sb, n.Right, right)

	case *Unary:
		var inner strings.Builder
		operand(&inner, n.Operand, precUnary)
		sb.WriteString(n.Op)
		if strings.HasPrefix(inner.String(), "-") {
			// "--" starts a comment
			sb.WriteByte(' ')
		}
		sb.WriteString(inner.String())

	case *And:
		operand(sb, n.Left, precAnd)
		sb.WriteString(" and ")
		operand(sb, n.Right, precAnd+1)

	case *Or:
		operand(sb, n.Left, precOr)
		sb.WriteString(" or ")
		operand(sb, n.Right, precOr+1)

	case *Not:
		sb.WriteString("not ")
		operand(sb, n.Operand, precNot)

	default:
		panic(unknownNode(n))
	}
}

// operand writes n, parenthesized when it binds looser than min.
func operand(sb *strings.Builder, n Node, min int) {
	if precedence(n) < min {
		sb.WriteByte('(')
		format(sb, n)
		sb.WriteByte(')')
		return
	}
	format(sb, n)
}

// Identifier renders an attribute name, back-quoting names that are not
// plain identifiers or that collide with a keyword.
func Identifier(name string) string {
	if isPlainIdentifier(name) && !Keywords[strings.ToLower(name)] {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func isPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
