package render

import (
	"html"
	"sort"
	"strings"
)

// Node is a backend-agnostic display fragment: an element with attributes
// and children, or a text leaf when Tag is empty. The pipeline emits
// these instead of markup strings so it can be unit-tested without a
// document environment and serialized for any target.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Children []*Node
	Text     string
}

// El builds an element node.
func El(tag string, attrs map[string]string, children ...*Node) *Node {
	return &Node{Tag: tag, Attrs: attrs, Children: children}
}

// Text builds a text leaf. Its content is entity-escaped on
// serialization, never before.
func Text(s string) *Node {
	return &Node{Text: s}
}

// Append adds children and returns the node for chaining.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr returns an attribute value, "" when absent.
func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// SetAttr sets an attribute in place.
func (n *Node) SetAttr(key, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
}

// Find walks the subtree depth-first and returns the first node the
// predicate matches.
func (n *Node) Find(match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// ReplaceChild swaps old for replacement anywhere in the subtree,
// reporting whether a swap happened. Exactly one node is replaced.
func (n *Node) ReplaceChild(old, replacement *Node) bool {
	if n == nil {
		return false
	}
	for i, child := range n.Children {
		if child == old {
			n.Children[i] = replacement
			return true
		}
		if child.ReplaceChild(old, replacement) {
			return true
		}
	}
	return false
}

var voidElements = map[string]struct{}{
	"img": {}, "br": {}, "hr": {}, "input": {}, "meta": {}, "link": {},
}

// HTML serializes the subtree. All text content and attribute values are
// escaped here, unconditionally; attributes are emitted in sorted order
// so output is deterministic.
func (n *Node) HTML() string {
	var sb strings.Builder
	n.writeHTML(&sb)
	return sb.String()
}

func (n *Node) writeHTML(sb *strings.Builder) {
	if n == nil {
		return
	}
	if n.Tag == "" {
		sb.WriteString(html.EscapeString(n.Text))
		return
	}

	sb.WriteByte('<')
	sb.WriteString(n.Tag)
	if len(n.Attrs) > 0 {
		keys := make([]string, 0, len(n.Attrs))
		for key := range n.Attrs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			sb.WriteByte(' ')
			sb.WriteString(key)
			sb.WriteString(`="`)
			sb.WriteString(html.EscapeString(n.Attrs[key]))
			sb.WriteByte('"')
		}
	}
	sb.WriteByte('>')

	if _, void := voidElements[n.Tag]; void {
		return
	}
	for _, child := range n.Children {
		child.writeHTML(sb)
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteByte('>')
}
