// Package parser provides a tolerant parser for the method-definition subset
// of Ruby. It produces a read-only syntax tree in which every node carries its
// source range plus named sub-ranges such as the "begin" parenthesis of an
// argument list.
package parser

import (
	"github.com/donaldgifford/deflint/internal/source"
)

// Kind classifies a syntax node.
type Kind int

const (
	// KindProgram is the root of a file.
	KindProgram Kind = iota
	// KindDef is an instance method definition (def foo).
	KindDef
	// KindDefs is a singleton method definition (def self.foo).
	KindDefs
	// KindReceiver is the receiver of a singleton definition.
	KindReceiver
	// KindName is a method name.
	KindName
	// KindArgs is a parameter list, parenthesized or bare.
	KindArgs
	// KindArg is one parameter.
	KindArg
	// KindBody holds the statements of a method.
	KindBody
	// KindBlock is a keyword construct closed by end (class, if, do, ...).
	KindBlock
	// KindStatement is any other statement, kept verbatim.
	KindStatement
)

var kindNames = [...]string{
	KindProgram:   "program",
	KindDef:       "def",
	KindDefs:      "defs",
	KindReceiver:  "receiver",
	KindName:      "name",
	KindArgs:      "args",
	KindArg:       "arg",
	KindBody:      "body",
	KindBlock:     "block",
	KindStatement: "statement",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Label names a sub-range of a node.
type Label string

const (
	LabelKeyword    Label = "keyword"    // def, class, if, ...
	LabelName       Label = "name"       // Method name.
	LabelOperator   Label = "operator"   // The dot in def self.foo.
	LabelBegin      Label = "begin"      // Opening parenthesis of an argument list.
	LabelEnd        Label = "end"        // Closing parenthesis, or the end keyword.
	LabelAssignment Label = "assignment" // The = of an endless definition.
)

// Node is a syntax tree node. Nodes are immutable once the parser returns.
type Node struct {
	Kind     Kind
	Children []*Node
	Loc      source.Range
	locs     map[Label]source.Range
}

// NewNode builds a node. It is exported for tests and external producers.
func NewNode(kind Kind, loc source.Range, children ...*Node) *Node {
	return &Node{Kind: kind, Loc: loc, Children: children}
}

// WithLocation records a named sub-range and returns n.
func (n *Node) WithLocation(label Label, r source.Range) *Node {
	if n.locs == nil {
		n.locs = make(map[Label]source.Range, 2)
	}
	n.locs[label] = r
	return n
}

// Location returns a named sub-range. The boolean is false when the source
// has no such token, which is distinct from an empty range.
func (n *Node) Location(label Label) (source.Range, bool) {
	if n == nil {
		return source.Range{}, false
	}
	r, ok := n.locs[label]
	return r, ok
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// FirstChild returns the first child of the given kind or nil.
func (n *Node) FirstChild(kind Kind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// IsDef reports whether n is a method definition of either form.
func (n *Node) IsDef() bool {
	return n != nil && (n.Kind == KindDef || n.Kind == KindDefs)
}

// DefArgs returns the argument list of a method definition, or nil when the
// node is not a definition or the list is missing.
func DefArgs(n *Node) *Node {
	if !n.IsDef() {
		return nil
	}
	return n.FirstChild(KindArgs)
}

// DefName returns the name node of a method definition, or nil.
func DefName(n *Node) *Node {
	if !n.IsDef() {
		return nil
	}
	return n.FirstChild(KindName)
}

// DefBoundary returns the range that terminates a definition: its end keyword
// when present, otherwise the empty range at the end of the node.
func DefBoundary(n *Node) source.Range {
	if r, ok := n.Location(LabelEnd); ok {
		return r
	}
	return source.Point(n.Loc.End)
}
