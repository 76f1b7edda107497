package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

type Kind int

const (
	DocumentNode Kind = iota
	ElementNode
	TextNode
	CommentNode
	ProcInstNode
	DirectiveNode
)

// Node is an owned, mutable XML tree node. Names keep their raw prefix in
// Name.Space (e.g. "xlink") so a document re-serialises as written.
type Node struct {
	Kind     Kind
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node
	Data     []byte
	Target   string
}

var ErrNoRoot = errors.New("svg: document has no root element")

// Parse reads a whole document into a tree rooted at a DocumentNode.
func Parse(data []byte) (*Node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Entity = xml.HTMLEntity
	doc := &Node{Kind: DocumentNode}
	stack := []*Node{doc}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("svg: parse: %w", err)
		}

		parent := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Kind: ElementNode, Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}
			parent.Children = append(parent.Children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 1 || parent.Name != t.Name {
				return nil, fmt.Errorf("svg: parse: unexpected </%s>", qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			parent.Children = append(parent.Children, &Node{Kind: TextNode, Data: bytes.Clone(t)})
		case xml.Comment:
			parent.Children = append(parent.Children, &Node{Kind: CommentNode, Data: bytes.Clone(t)})
		case xml.ProcInst:
			parent.Children = append(parent.Children, &Node{Kind: ProcInstNode, Target: t.Target, Data: bytes.Clone(t.Inst)})
		case xml.Directive:
			parent.Children = append(parent.Children, &Node{Kind: DirectiveNode, Data: bytes.Clone(t)})
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("svg: parse: unclosed <%s>", qualified(stack[len(stack)-1].Name))
	}
	if doc.Root() == nil {
		return nil, ErrNoRoot
	}
	return doc, nil
}

// Root returns the first element child.
func (n *Node) Root() *Node {
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first in document order until fn
// returns false. It reports whether the walk ran to completion.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first element, in document order, that matches.
func (n *Node) Find(match func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if c.Kind == ElementNode && match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// Get returns the value of the attribute with the given local name, whatever
// its prefix. Namespace declarations are ignored.
func (n *Node) Get(local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space != "xmlns" {
			return a.Value, true
		}
	}
	return "", false
}

// Set overwrites the attribute with the given local name or appends it.
func (n *Node) Set(local, value string) {
	for i, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space != "xmlns" {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xml.Attr{Name: xml.Name{Local: local}, Value: value})
}

// RemoveChildren drops every descendant element that matches.
func (n *Node) RemoveChildren(match func(*Node) bool) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if c.Kind == ElementNode && match(c) {
			continue
		}
		c.RemoveChildren(match)
		kept = append(kept, c)
	}
	n.Children = kept
}

func (n *Node) Clone() *Node {
	c := &Node{
		Kind:   n.Kind,
		Name:   n.Name,
		Attr:   append([]xml.Attr(nil), n.Attr...),
		Data:   bytes.Clone(n.Data),
		Target: n.Target,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Bytes serialises the tree.
func (n *Node) Bytes() []byte {
	var buf bytes.Buffer
	n.write(&buf)
	return buf.Bytes()
}

func (n *Node) write(buf *bytes.Buffer) {
	switch n.Kind {
	case DocumentNode:
		for _, c := range n.Children {
			c.write(buf)
		}
	case ElementNode:
		buf.WriteByte('<')
		buf.WriteString(qualified(n.Name))
		for _, a := range n.Attr {
			buf.WriteByte(' ')
			buf.WriteString(qualified(a.Name))
			buf.WriteString(`="`)
			_ = xml.EscapeText(buf, []byte(a.Value))
			buf.WriteByte('"')
		}
		if len(n.Children) == 0 {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for _, c := range n.Children {
			c.write(buf)
		}
		buf.WriteString("</")
		buf.WriteString(qualified(n.Name))
		buf.WriteByte('>')
	case TextNode:
		_ = xml.EscapeText(buf, n.Data)
	case CommentNode:
		buf.WriteString("<!--")
		buf.Write(n.Data)
		buf.WriteString("-->")
	case ProcInstNode:
		buf.WriteString("<?")
		buf.WriteString(n.Target)
		if len(n.Data) > 0 {
			buf.WriteByte(' ')
			buf.Write(n.Data)
		}
		buf.WriteString("?>")
	case DirectiveNode:
		buf.WriteString("<!")
		buf.Write(n.Data)
		buf.WriteByte('>')
	}
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
