package hierarchical

import (
	"strings"

	"github.com/roach88/racetrack/internal/ir"
)

// NodeKind tells renderers how to lay out a node.
type NodeKind int

const (
	// KindText holds a scalar.
	KindText NodeKind = iota
	// KindRecord holds named fields.
	KindRecord
	// KindList holds an ordered list of elements.
	KindList
)

// Node is one element of the neutral document tree.
//
// Built trees set Kind and, for text nodes, Value. Parsed trees only carry
// names, text and children; the schema decides how they are read.
type Node struct {
	Name     string
	Kind     NodeKind
	Text     string
	Value    ir.Value
	Null     bool
	Children []*Node

	// Line is the source line of a parsed node, or 0.
	Line int
}

// blank reports whether the node holds no text other than whitespace.
func (n *Node) blank() bool {
	return strings.TrimSpace(n.Text) == ""
}

// empty reports whether the node is null or holds nothing at all.
func (n *Node) empty() bool {
	return n.Null || (len(n.Children) == 0 && n.blank())
}
