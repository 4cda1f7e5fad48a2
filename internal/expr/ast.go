// Package expr defines the expression AST query predicates compile to,
// together with its evaluator and its text form.
package expr

import (
	"fmt"

	"github.com/trylock/viewer-sub003/internal/value"
)

// Node is an immutable expression node. The set of node types is closed:
// Constant, Attribute, Call, Binary, Unary, And, Or and Not. Every
// interpreter (evaluation, formatting, priority vectors) is an exhaustive
// type switch over this set.
type Node interface {
	exprNode()
}

// Constant is a literal value.
type Constant struct {
	Value value.Value
}

// Attribute reads the named attribute of the current entity.
type Attribute struct {
	Name string
}

// Call invokes a named function from the runtime registry.
type Call struct {
	Name string
	Args []Node
}

// Binary is an arithmetic or comparison operator. Op names the registry
// function implementing it: + - * / = <> < <= > >=.
type Binary struct {
	Op          string
	Left, Right Node
}

// Unary is a prefix operator; the only one is "-".
type Unary struct {
	Op      string
	Operand Node
}

// And is a short-circuit conjunction.
type And struct {
	Left, Right Node
}

// Or is a short-circuit disjunction.
type Or struct {
	Left, Right Node
}

// Not is a logical negation.
type Not struct {
	Operand Node
}

func (*Constant) exprNode()  {}
func (*Attribute) exprNode() {}
func (*Call) exprNode()      {}
func (*Binary) exprNode()    {}
func (*Unary) exprNode()     {}
func (*And) exprNode()       {}
func (*Or) exprNode()        {}
func (*Not) exprNode()       {}

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Constant, *Attribute:
		return nil
	case *Call:
		return n.Args
	case *Binary:
		return []Node{n.Left, n.Right}
	case *Unary:
		return []Node{n.Operand}
	case *And:
		return []Node{n.Left, n.Right}
	case *Or:
		return []Node{n.Left, n.Right}
	case *Not:
		return []Node{n.Operand}
	}
	panic(unknownNode(n))
}

// Walk visits n and its descendants depth first, parents before children.
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// AttributeNames returns the distinct attribute names read by n in order of
// first appearance.
func AttributeNames(n Node) []string {
	var names []string
	seen := map[string]bool{}
	Walk(n, func(n Node) {
		if a, ok := n.(*Attribute); ok && !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
	})
	return names
}

func unknownNode(n Node) string {
	return fmt.Sprintf("expr: unknown node type %T", n)
}
