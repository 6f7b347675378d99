package ast

import (
	"fmt"
	"strconv"

	"github.com/strager/cmmc/sexy"
)

var binaryOps = map[string]bool{
	"*": true, "/": true, "%": true, "+": true, "-": true,
	"<<": true, ">>": true,
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true,
	"&": true, "^": true, "|": true, "&&": true, "||": true,
}

var unaryOps = map[string]bool{"-": true, "+": true, "!": true, "~": true}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "^=": true, "|=": true,
}

var incDecOps = map[string]bool{"++": true, "--": true, "post++": true, "post--": true}

var literalTypes = map[string]NodeKind{
	"char":  NodeInteger,
	"long":  NodeInteger,
	"float": NodeFloat,
}

// FromSexy builds a translation unit from its s-expression form.
func FromSexy(n *sexy.Node) (*Node, error) {
	if n.Head() != "unit" {
		return nil, fmt.Errorf("line %d: expected (unit ...) but got %s", n.Line, n)
	}
	unit := &Node{Kind: NodeUnit, Line: n.Line}
	for _, item := range n.Items[1:] {
		var child *Node
		var err error
		switch item.Head() {
		case "func":
			child, err = buildFunc(item)
		case "decl":
			child, err = buildDecl(item)
		default:
			err = fmt.Errorf("line %d: expected func or decl at top level but got %s", item.Line, item)
		}
		if err != nil {
			return nil, err
		}
		unit.Children = append(unit.Children, child)
	}
	return unit, nil
}

func buildSpecifiers(n *sexy.Node) ([]string, error) {
	if n.Type == sexy.NodeSymbol {
		return []string{n.Text}, nil
	}
	if n.Type != sexy.NodeList || len(n.Items) == 0 {
		return nil, fmt.Errorf("line %d: expected type but got %s", n.Line, n)
	}
	var specs []string
	for _, item := range n.Items {
		if item.Type != sexy.NodeSymbol {
			return nil, fmt.Errorf("line %d: expected type specifier but got %s", item.Line, item)
		}
		specs = append(specs, item.Text)
	}
	return specs, nil
}

func buildName(n *sexy.Node) (string, error) {
	if n.Type != sexy.NodeSymbol || !isIdentifier(n.Text) {
		return "", fmt.Errorf("line %d: expected identifier but got %s", n.Line, n)
	}
	return n.Text, nil
}

func isIdentifier(s string) bool {
	if s == "" || s == "_" || s == "true" || s == "false" {
		return false
	}
	for i, r := range s {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// (func TYPE NAME [(TYPE NAME)...] (block ...))
func buildFunc(n *sexy.Node) (*Node, error) {
	if len(n.Items) != 5 {
		return nil, fmt.Errorf("line %d: expected (func TYPE NAME [PARAMS] BODY)", n.Line)
	}
	specs, err := buildSpecifiers(n.Items[1])
	if err != nil {
		return nil, err
	}
	name, err := buildName(n.Items[2])
	if err != nil {
		return nil, err
	}
	fn := &Node{Kind: NodeFunc, String: name, Specifiers: specs, Line: n.Line}

	params := n.Items[3]
	if params.Type != sexy.NodeArray && !(params.Type == sexy.NodeList && len(params.Items) == 0) {
		return nil, fmt.Errorf("line %d: expected parameter list but got %s", params.Line, params)
	}
	for _, p := range params.Items {
		if p.Type != sexy.NodeList || len(p.Items) < 2 {
			return nil, fmt.Errorf("line %d: expected (TYPE NAME) parameter but got %s", p.Line, p)
		}
		last := len(p.Items) - 1
		pname, err := buildName(p.Items[last])
		if err != nil {
			return nil, err
		}
		specNode := p.Items[0]
		if last > 1 {
			specNode = &sexy.Node{Type: sexy.NodeList, Items: p.Items[:last], Line: p.Line}
		}
		pspecs, err := buildSpecifiers(specNode)
		if err != nil {
			return nil, err
		}
		fn.Children = append(fn.Children, &Node{Kind: NodeParam, String: pname, Specifiers: pspecs, Line: p.Line})
	}

	if n.Items[4].Head() != "block" {
		return nil, fmt.Errorf("line %d: function body must be a block", n.Items[4].Line)
	}
	body, err := buildStmt(n.Items[4])
	if err != nil {
		return nil, err
	}
	fn.Children = append(fn.Children, body)
	return fn, nil
}

// (decl TYPE NAME (NAME INIT) ...)
func buildDecl(n *sexy.Node) (*Node, error) {
	if len(n.Items) < 3 {
		return nil, fmt.Errorf("line %d: expected (decl TYPE DECLARATOR...)", n.Line)
	}
	specs, err := buildSpecifiers(n.Items[1])
	if err != nil {
		return nil, err
	}
	decl := &Node{Kind: NodeDecl, Specifiers: specs, Line: n.Line}
	for _, d := range n.Items[2:] {
		declarator := &Node{Kind: NodeDeclarator, Line: d.Line}
		if d.Type == sexy.NodeList {
			if len(d.Items) != 2 {
				return nil, fmt.Errorf("line %d: expected (NAME INITIALIZER) but got %s", d.Line, d)
			}
			declarator.String, err = buildName(d.Items[0])
			if err != nil {
				return nil, err
			}
			init, err := buildExpr(d.Items[1])
			if err != nil {
				return nil, err
			}
			declarator.Children = []*Node{init}
		} else {
			declarator.String, err = buildName(d)
			if err != nil {
				return nil, err
			}
		}
		decl.Children = append(decl.Children, declarator)
	}
	return decl, nil
}

func buildStmts(items []*sexy.Node) ([]*Node, error) {
	var out []*Node
	for _, item := range items {
		stmt, err := buildStmt(item)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// buildOptional builds a statement or expression slot that may be "_".
func buildOptional(n *sexy.Node, build func(*sexy.Node) (*Node, error)) (*Node, error) {
	if n.IsSymbol("_") {
		return &Node{Kind: NodeEmpty, Line: n.Line}, nil
	}
	return build(n)
}

func expectArgs(n *sexy.Node, min, max int) error {
	args := len(n.Items) - 1
	if args < min || args > max {
		return fmt.Errorf("line %d: wrong number of operands in %s", n.Line, n)
	}
	return nil
}

func buildStmt(n *sexy.Node) (*Node, error) {
	kind := NodeKind("")
	min, max := 0, 0
	switch n.Head() {
	case "decl":
		return buildDecl(n)
	case "block":
		stmts, err := buildStmts(n.Items[1:])
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeBlock, Line: n.Line, Children: stmts}, nil
	case "for":
		if err := expectArgs(n, 4, 4); err != nil {
			return nil, err
		}
		init, err := buildOptional(n.Items[1], buildStmt)
		if err != nil {
			return nil, err
		}
		var parts []*Node
		for _, item := range n.Items[2:4] {
			part, err := buildOptional(item, buildExpr)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		body, err := buildStmt(n.Items[4])
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeFor, Line: n.Line, Children: []*Node{init, parts[0], parts[1], body}}, nil
	case "if":
		kind, min, max = NodeIf, 2, 3
	case "while":
		kind, min, max = NodeWhile, 2, 2
	case "do":
		kind, min, max = NodeDoWhile, 2, 2
	case "return":
		kind, min, max = NodeReturn, 0, 1
	case "break":
		kind = NodeBreak
	case "continue":
		kind = NodeContinue
	case "print":
		kind, min, max = NodePrint, 1, 1
	default:
		if n.IsSymbol("_") {
			return &Node{Kind: NodeEmpty, Line: n.Line}, nil
		}
		expr, err := buildExpr(n)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeExprStmt, Line: n.Line, Children: []*Node{expr}}, nil
	}

	if err := expectArgs(n, min, max); err != nil {
		return nil, err
	}
	node := &Node{Kind: kind, Line: n.Line}
	for i, item := range n.Items[1:] {
		var child *Node
		var err error
		// the condition sits first in if/while and last in do
		isCond := (kind == NodeIf || kind == NodeWhile) && i == 0 || kind == NodeDoWhile && i == 1
		if isCond || kind == NodeReturn || kind == NodePrint {
			child, err = buildExpr(item)
		} else {
			child, err = buildStmt(item)
		}
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func buildExpr(n *sexy.Node) (*Node, error) {
	switch n.Type {
	case sexy.NodeInteger:
		v, err := strconv.ParseInt(n.Text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad integer %s", n.Line, n.Text)
		}
		return &Node{Kind: NodeInteger, Integer: v, Specifiers: []string{"int"}, Line: n.Line}, nil
	case sexy.NodeFloat:
		v, err := strconv.ParseFloat(n.Text, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad float %s", n.Line, n.Text)
		}
		return &Node{Kind: NodeFloat, Float: v, Specifiers: []string{"double"}, Line: n.Line}, nil
	case sexy.NodeSymbol:
		switch n.Text {
		case "true":
			return &Node{Kind: NodeBool, Integer: 1, Specifiers: []string{"bool"}, Line: n.Line}, nil
		case "false":
			return &Node{Kind: NodeBool, Integer: 0, Specifiers: []string{"bool"}, Line: n.Line}, nil
		}
		name, err := buildName(n)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeIdent, String: name, Line: n.Line}, nil
	case sexy.NodeList:
	default:
		return nil, fmt.Errorf("line %d: expected expression but got %s", n.Line, n)
	}

	head := n.Head()
	args := n.Items[1:]
	switch {
	case head == "":
		return nil, fmt.Errorf("line %d: expected expression but got %s", n.Line, n)

	case literalTypes[head] != "":
		if len(args) != 1 || args[0].Type == sexy.NodeList || args[0].Type == sexy.NodeSymbol {
			return nil, fmt.Errorf("line %d: expected (%s LITERAL)", n.Line, head)
		}
		lit, err := buildExpr(args[0])
		if err != nil {
			return nil, err
		}
		if literalTypes[head] == NodeFloat && lit.Kind == NodeInteger {
			lit = &Node{Kind: NodeFloat, Float: float64(lit.Integer), Line: lit.Line}
		}
		if lit.Kind != literalTypes[head] {
			return nil, fmt.Errorf("line %d: bad %s literal %s", n.Line, head, args[0])
		}
		lit.Specifiers = []string{head}
		lit.Line = n.Line
		return lit, nil

	case head == "call":
		if len(args) == 0 {
			return nil, fmt.Errorf("line %d: expected (call NAME ARGS...)", n.Line)
		}
		name, err := buildName(args[0])
		if err != nil {
			return nil, err
		}
		call := &Node{Kind: NodeCall, String: name, Line: n.Line}
		for _, a := range args[1:] {
			arg, err := buildExpr(a)
			if err != nil {
				return nil, err
			}
			call.Children = append(call.Children, arg)
		}
		return call, nil

	case head == "cast":
		if err := expectArgs(n, 2, 2); err != nil {
			return nil, err
		}
		specs, err := buildSpecifiers(args[0])
		if err != nil {
			return nil, err
		}
		operand, err := buildExpr(args[1])
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeCast, Specifiers: specs, Line: n.Line, Children: []*Node{operand}}, nil

	case assignOps[head] || incDecOps[head]:
		kind := NodeAssign
		if incDecOps[head] {
			kind = NodeIncDec
			if err := expectArgs(n, 1, 1); err != nil {
				return nil, err
			}
		} else if err := expectArgs(n, 2, 2); err != nil {
			return nil, err
		}
		name, err := buildName(args[0])
		if err != nil {
			return nil, err
		}
		node := &Node{Kind: kind, Op: head, Line: n.Line}
		node.Children = []*Node{{Kind: NodeIdent, String: name, Line: args[0].Line}}
		if kind == NodeAssign {
			rhs, err := buildExpr(args[1])
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, rhs)
		}
		return node, nil
	}

	var kind NodeKind
	switch {
	case head == "?" && len(args) == 3:
		kind = NodeConditional
	case binaryOps[head] && len(args) == 2:
		kind = NodeBinary
	case unaryOps[head] && len(args) == 1:
		kind = NodeUnary
	default:
		return nil, fmt.Errorf("line %d: unknown expression %s", n.Line, n)
	}
	node := &Node{Kind: kind, Line: n.Line}
	if kind != NodeConditional {
		node.Op = head
	}
	for _, a := range args {
		child, err := buildExpr(a)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
