// Package dom is a minimal hyperscript-style element tree. It exists so
// views have something mountable to return; the hot-swap core only depends
// on Mount's replace-all-children contract.
package dom

import (
	"fmt"
	"sort"
	"strings"
)

// Node is anything that can be mounted into a container.
type Node interface {
	HTML() string
	setParent(p *Element)
}

// Element is a single named element with attributes and children.
type Element struct {
	Tag      string
	Attrs    map[string]string
	children []Node
	parent   *Element
	root     bool
}

// H builds an element. Pass nil attrs for none.
func H(tag string, attrs map[string]string, children ...Node) *Element {
	e := &Element{Tag: tag, Attrs: attrs}
	for _, c := range children {
		e.Append(c)
	}
	return e
}

// Append adds a child node.
func (e *Element) Append(n Node) {
	if n == nil {
		return
	}
	n.setParent(e)
	e.children = append(e.children, n)
}

// Children returns the element's child nodes.
func (e *Element) Children() []Node {
	return e.children
}

// Attached reports whether the element is still reachable from a mounted
// root. Bindings use this to detect that their target left the document.
func (e *Element) Attached() bool {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.root {
			return true
		}
	}
	return false
}

// HTML renders the subtree as markup.
func (e *Element) HTML() string {
	var b strings.Builder
	b.WriteString("<" + e.Tag)

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%q", k, e.Attrs[k])
	}
	b.WriteString(">")
	for _, c := range e.children {
		b.WriteString(c.HTML())
	}
	b.WriteString("</" + e.Tag + ">")
	return b.String()
}

func (e *Element) setParent(p *Element) { e.parent = p }

// TextNode is a leaf text node whose content can be rewritten in place,
// which is what fine-grained store bindings do.
type TextNode struct {
	content string
	parent  *Element
}

// Text builds a text node.
func Text(s string) *TextNode {
	return &TextNode{content: s}
}

// Set replaces the node's text content.
func (t *TextNode) Set(s string) { t.content = s }

// Content returns the node's current text.
func (t *TextNode) Content() string { return t.content }

// Attached reports whether the text node is still in a mounted tree.
func (t *TextNode) Attached() bool {
	return t.parent != nil && t.parent.Attached()
}

func (t *TextNode) HTML() string { return t.content }

func (t *TextNode) setParent(p *Element) { t.parent = p }

// FragmentNode groups children without a wrapping element.
type FragmentNode struct {
	children []Node
	parent   *Element
}

// Fragment builds a fragment.
func Fragment(children ...Node) *FragmentNode {
	f := &FragmentNode{}
	for _, c := range children {
		if c != nil {
			f.children = append(f.children, c)
		}
	}
	return f
}

func (f *FragmentNode) HTML() string {
	var b strings.Builder
	for _, c := range f.children {
		b.WriteString(c.HTML())
	}
	return b.String()
}

func (f *FragmentNode) setParent(p *Element) {
	f.parent = p
	for _, c := range f.children {
		c.setParent(p)
	}
}

// Mount replaces all of container's children with node. The previous
// children are detached: any bindings targeting them will be dropped on
// their next delivery.
func Mount(container *Element, n Node) {
	Clear(container)
	if n != nil {
		container.Append(n)
	}
}

// Clear detaches every child from container.
func Clear(container *Element) {
	for _, c := range container.children {
		c.setParent(nil)
	}
	container.children = nil
}

// NewRoot creates a mounted root container, e.g. the page body.
func NewRoot(tag string) *Element {
	return &Element{Tag: tag, root: true}
}
