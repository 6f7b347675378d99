// Package ast is the syntax tree consumed by the compiler passes.
package ast

import (
	"strconv"
	"strings"
)

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeUnit        NodeKind = "NodeUnit"
	NodeFunc        NodeKind = "NodeFunc"
	NodeParam       NodeKind = "NodeParam"
	NodeDecl        NodeKind = "NodeDecl"
	NodeDeclarator  NodeKind = "NodeDeclarator"
	NodeBlock       NodeKind = "NodeBlock"
	NodeIf          NodeKind = "NodeIf"
	NodeWhile       NodeKind = "NodeWhile"
	NodeDoWhile     NodeKind = "NodeDoWhile"
	NodeFor         NodeKind = "NodeFor"
	NodeReturn      NodeKind = "NodeReturn"
	NodeBreak       NodeKind = "NodeBreak"
	NodeContinue    NodeKind = "NodeContinue"
	NodePrint       NodeKind = "NodePrint"
	NodeExprStmt    NodeKind = "NodeExprStmt"
	NodeEmpty       NodeKind = "NodeEmpty"
	NodeIdent       NodeKind = "NodeIdent"
	NodeInteger     NodeKind = "NodeInteger"
	NodeFloat       NodeKind = "NodeFloat"
	NodeBool        NodeKind = "NodeBool"
	NodeBinary      NodeKind = "NodeBinary"
	NodeUnary       NodeKind = "NodeUnary"
	NodeAssign      NodeKind = "NodeAssign"
	NodeIncDec      NodeKind = "NodeIncDec"
	NodeConditional NodeKind = "NodeConditional"
	NodeCall        NodeKind = "NodeCall"
	NodeCast        NodeKind = "NodeCast"
)

// Node represents a node in the syntax tree
type Node struct {
	Kind NodeKind
	// NodeIdent, NodeFunc, NodeParam, NodeDeclarator, NodeCall:
	String string
	// NodeInteger, NodeBool:
	Integer int64
	// NodeFloat:
	Float float64
	// NodeBinary, NodeUnary, NodeAssign, NodeIncDec:
	Op string
	// NodeFunc (return type), NodeParam, NodeDecl, NodeCast and literals:
	Specifiers []string
	// Source line, 0 when unknown
	Line     int
	Children []*Node
}

// Params returns the parameters of a NodeFunc.
func (n *Node) Params() []*Node {
	return n.Children[:len(n.Children)-1]
}

// Body returns the body block of a NodeFunc.
func (n *Node) Body() *Node {
	return n.Children[len(n.Children)-1]
}

// IsExpression reports whether n is one of the expression kinds.
func (n *Node) IsExpression() bool {
	switch n.Kind {
	case NodeIdent, NodeInteger, NodeFloat, NodeBool, NodeBinary, NodeUnary,
		NodeAssign, NodeIncDec, NodeConditional, NodeCall, NodeCast:
		return true
	}
	return false
}

// ToSExpr converts a node back to its s-expression form
func ToSExpr(node *Node) string {
	switch node.Kind {
	case NodeUnit:
		return list("unit", children(node.Children)...)
	case NodeFunc:
		var params []string
		for _, p := range node.Params() {
			params = append(params, ToSExpr(p))
		}
		return list("func", typeSExpr(node.Specifiers), node.String,
			"["+strings.Join(params, " ")+"]", ToSExpr(node.Body()))
	case NodeParam:
		parts := append(append([]string(nil), node.Specifiers...), node.String)
		return "(" + strings.Join(parts, " ") + ")"
	case NodeDecl:
		return list("decl", append([]string{typeSExpr(node.Specifiers)}, children(node.Children)...)...)
	case NodeDeclarator:
		if len(node.Children) == 0 {
			return node.String
		}
		return list(node.String, ToSExpr(node.Children[0]))
	case NodeBlock:
		return list("block", children(node.Children)...)
	case NodeIf:
		return list("if", children(node.Children)...)
	case NodeWhile:
		return list("while", children(node.Children)...)
	case NodeDoWhile:
		return list("do", children(node.Children)...)
	case NodeFor:
		return list("for", children(node.Children)...)
	case NodeReturn:
		return list("return", children(node.Children)...)
	case NodeBreak:
		return "(break)"
	case NodeContinue:
		return "(continue)"
	case NodePrint:
		return list("print", children(node.Children)...)
	case NodeExprStmt:
		return ToSExpr(node.Children[0])
	case NodeEmpty:
		return "_"
	case NodeIdent:
		return node.String
	case NodeInteger:
		text := strconv.FormatInt(node.Integer, 10)
		if isDefault(node.Specifiers, "int") {
			return text
		}
		return list(typeSExpr(node.Specifiers), text)
	case NodeFloat:
		text := strconv.FormatFloat(node.Float, 'g', -1, 64)
		if !strings.ContainsAny(text, ".e") {
			text += ".0"
		}
		if isDefault(node.Specifiers, "double") {
			return text
		}
		return list(typeSExpr(node.Specifiers), text)
	case NodeBool:
		if node.Integer != 0 {
			return "true"
		}
		return "false"
	case NodeBinary, NodeUnary, NodeAssign, NodeIncDec:
		return list(node.Op, children(node.Children)...)
	case NodeConditional:
		return list("?", children(node.Children)...)
	case NodeCall:
		return list("call", append([]string{node.String}, children(node.Children)...)...)
	case NodeCast:
		return list("cast", typeSExpr(node.Specifiers), ToSExpr(node.Children[0]))
	default:
		return ""
	}
}

func list(head string, items ...string) string {
	return "(" + strings.Join(append([]string{head}, items...), " ") + ")"
}

func children(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, ToSExpr(n))
	}
	return out
}

func typeSExpr(specs []string) string {
	if len(specs) == 1 {
		return specs[0]
	}
	return "(" + strings.Join(specs, " ") + ")"
}

func isDefault(specs []string, name string) bool {
	return len(specs) == 1 && specs[0] == name
}
