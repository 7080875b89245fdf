// Package outline turns a flat sequence of leveled text blocks into the
// nested document tree that the pipeline serializes.
package outline

import (
	"encoding/json"
	"io"
)

// Item is one classified block in document order, the assembler's input.
type Item struct {
	Level Level
	Text  string
	Page  int
}

// Node is one vertex of the assembled outline tree.
type Node struct {
	Level    Level   `json:"level"`
	Text     string  `json:"text"`
	Page     int     `json:"page"`
	Children []*Node `json:"children,omitempty"`
}

// Assemble builds the outline forest from items in document order using a
// stack of open heading scopes. For each item the stack is popped until its
// top ranks strictly above the item, then the item attaches to the remaining
// top (or becomes a root). Headings are pushed and may receive children;
// Body items are always leaves. Input order is preserved among siblings.
func Assemble(items []Item) []*Node {
	var roots []*Node

	type scope struct {
		node *Node
		rank int
	}
	var stack []scope

	for _, it := range items {
		n := &Node{Level: it.Level, Text: it.Text, Page: it.Page}
		rank := it.Level.Rank()

		for len(stack) > 0 && stack[len(stack)-1].rank >= rank {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			top := stack[len(stack)-1].node
			top.Children = append(top.Children, n)
		}

		if it.Level.IsHeading() {
			stack = append(stack, scope{node: n, rank: rank})
		}
	}

	return roots
}

// Walk visits every node of the forest depth-first in document order.
func Walk(roots []*Node, fn func(n *Node, depth int)) {
	var rec func(n *Node, depth int)
	rec = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			rec(c, depth+1)
		}
	}
	for _, r := range roots {
		rec(r, 0)
	}
}

// EncodeJSON writes the outline with two-space indentation. A single root is
// encoded as one object; multiple roots (or none) encode as an array.
func EncodeJSON(w io.Writer, roots []*Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if len(roots) == 1 {
		return enc.Encode(roots[0])
	}
	if roots == nil {
		roots = []*Node{}
	}
	return enc.Encode(roots)
}
