package sexy

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeInteger
	NodeFloat
	NodeList
	NodeArray
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeInteger:
		return "integer"
	case NodeFloat:
		return "float"
	case NodeList:
		return "list"
	case NodeArray:
		return "array"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node represents any Sexy datum
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeInteger, NodeFloat
	Items []*Node // NodeList, NodeArray
	Line  int     // line the datum starts on, 1-based
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger, NodeFloat:
		return n.Text
	case NodeList, NodeArray:
		var parts []string
		for _, item := range n.Items {
			parts = append(parts, item.String())
		}
		if n.Type == NodeArray {
			return fmt.Sprintf("[%s]", strings.Join(parts, " "))
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, " "))
	default:
		return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
	}
}

// Helper constructors for common node types
func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewFloat(text string) *Node {
	return &Node{Type: NodeFloat, Text: text}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

func NewArray(items ...*Node) *Node {
	return &Node{Type: NodeArray, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type == NodeSymbol || n.Type == NodeInteger || n.Type == NodeFloat
}

// IsSymbol checks if the node is the symbol name
func (n *Node) IsSymbol(name string) bool {
	return n.Type == NodeSymbol && n.Text == name
}

// Head returns the leading symbol of a list, or "" if there is none
func (n *Node) Head() string {
	if n.Type != NodeList || len(n.Items) == 0 || n.Items[0].Type != NodeSymbol {
		return ""
	}
	return n.Items[0].Text
}

// ErrIncomplete matches parse errors caused by input that ends inside an
// open list or array.
var ErrIncomplete = errors.New("incomplete input")

type incompleteError struct{ msg string }

func (e *incompleteError) Error() string        { return e.msg }
func (e *incompleteError) Is(target error) bool { return target == ErrIncomplete }

type parser struct {
	lexer        *lexer
	currentToken token
	peekToken    token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	nodes, err := ParseAll(input)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected exactly one datum but got %d", len(nodes))
	}
	return nodes[0], nil
}

// ParseAll parses every top-level datum in input
func ParseAll(input string) ([]*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()
	p.nextToken()

	var nodes []*Node
	for p.currentToken.Type != tokenEOF {
		node, err := p.ParseDatum()
		if len(p.lexer.errors) > 0 {
			// Lexer errors take priority because they might cause confusing parser errors.
			return nil, fmt.Errorf("%s", p.lexer.errors[0])
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if len(p.lexer.errors) > 0 {
		return nil, fmt.Errorf("%s", p.lexer.errors[0])
	}
	return nodes, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.lexer.nextToken()
}

func (p *parser) ParseDatum() (*Node, error) {
	tok := p.currentToken
	var node *Node
	switch tok.Type {
	case tokenSymbol:
		node = NewSymbol(tok.Value)
		p.nextToken()
	case tokenInteger:
		node = NewInteger(tok.Value)
		p.nextToken()
	case tokenFloat:
		node = NewFloat(tok.Value)
		p.nextToken()
	case tokenLParen:
		items, err := p.parseItems(tokenRParen)
		if err != nil {
			return nil, err
		}
		node = NewList(items...)
	case tokenLBracket:
		items, err := p.parseItems(tokenRBracket)
		if err != nil {
			return nil, err
		}
		node = NewArray(items...)
	default:
		return nil, fmt.Errorf("line %d: unexpected token: %s", tok.Line, tok.Type)
	}
	node.Line = tok.Line
	return node, nil
}

func (p *parser) parseItems(closer tokenType) ([]*Node, error) {
	var items []*Node
	p.nextToken() // consume opener

	for p.currentToken.Type != closer && p.currentToken.Type != tokenEOF {
		item, err := p.ParseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if p.currentToken.Type == tokenEOF {
		return nil, &incompleteError{fmt.Sprintf("line %d: expected %s but got %s", p.currentToken.Line, closer, p.currentToken.Type)}
	}
	if p.currentToken.Type != closer {
		return nil, fmt.Errorf("line %d: expected %s but got %s", p.currentToken.Line, closer, p.currentToken.Type)
	}
	p.nextToken() // consume closer
	return items, nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenInteger
	tokenFloat
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenInteger:
		return "integer"
	case tokenFloat:
		return "float"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type  tokenType
	Value string
	Line  int
}

type lexer struct {
	input    string
	position int
	current  rune
	line     int
	errors   []string
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.current == '\n' {
		l.line++
	}
	if l.position >= len(l.input) {
		l.current = 0
	} else {
		l.current = rune(l.input[l.position])
	}
	l.position++
}

func (l *lexer) peekChar() rune {
	if l.position >= len(l.input) {
		return 0
	}
	return rune(l.input[l.position])
}

func (l *lexer) skipWhitespace() {
	for unicode.IsSpace(l.current) {
		l.readChar()
	}
}

func (l *lexer) skipComment() {
	for l.current != '\n' && l.current != '\r' && l.current != 0 {
		l.readChar()
	}
}

func (l *lexer) readSymbol() string {
	start := l.position - 1
	for isSymbolChar(l.current) {
		l.readChar()
	}
	return l.input[start : l.position-1]
}

// readNumber reads an optionally signed integer or decimal literal and
// reports whether it had a fraction or exponent.
func (l *lexer) readNumber() (string, bool) {
	start := l.position - 1
	isFloat := false
	if l.current == '+' || l.current == '-' {
		l.readChar()
	}
	for unicode.IsDigit(l.current) {
		l.readChar()
	}
	if l.current == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for unicode.IsDigit(l.current) {
			l.readChar()
		}
	}
	if l.current == 'e' || l.current == 'E' {
		isFloat = true
		l.readChar()
		if l.current == '+' || l.current == '-' {
			l.readChar()
		}
		for unicode.IsDigit(l.current) {
			l.readChar()
		}
	}
	return l.input[start : l.position-1], isFloat
}

func (l *lexer) nextToken() token {
	for {
		l.skipWhitespace()

		line := l.line
		switch l.current {
		case 0:
			return token{Type: tokenEOF, Line: line}
		case ';':
			l.skipComment()
			continue
		case '(':
			l.readChar()
			return token{Type: tokenLParen, Value: "(", Line: line}
		case ')':
			l.readChar()
			return token{Type: tokenRParen, Value: ")", Line: line}
		case '[':
			l.readChar()
			return token{Type: tokenLBracket, Value: "[", Line: line}
		case ']':
			l.readChar()
			return token{Type: tokenRBracket, Value: "]", Line: line}
		default:
			signed := l.current == '+' || l.current == '-'
			if unicode.IsDigit(l.current) || (signed && unicode.IsDigit(l.peekChar())) {
				text, isFloat := l.readNumber()
				if isFloat {
					return token{Type: tokenFloat, Value: text, Line: line}
				}
				return token{Type: tokenInteger, Value: text, Line: line}
			}
			if isSymbolChar(l.current) {
				return token{Type: tokenSymbol, Value: l.readSymbol(), Line: line}
			}
			// Unknown character is a syntax error
			l.errors = append(l.errors, fmt.Sprintf("line %d: unexpected character '%c'", line, l.current))
			return token{Type: tokenEOF, Line: line}
		}
	}
}

func isSymbolChar(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return r != 0 && strings.ContainsRune("_+-*/%<>=!&|^~?.", r)
}
