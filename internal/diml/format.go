package diml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Declaration prefixes every formatted document.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

const indent = "  "

// FormatError reports input that could not be parsed as XML.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return "failed to format DIML: " + e.Err.Error()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// node is a generic XML element or text run.
type node struct {
	name     string
	attrs    []xml.Attr
	children []*node

	text   string
	isText bool
}

// child returns the first element child with the given local name.
// It is safe to call on a nil node.
func (n *node) child(name string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if !c.isText && c.name == name {
			return c
		}
	}
	return nil
}

// attr returns the value of an unprefixed attribute, or "".
func (n *node) attr(name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// parse reads text into a document node whose children are the top-level
// elements. Whitespace-only text, comments, processing instructions and
// directives are dropped.
func parse(text string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	doc := &node{}
	stack := []*node{doc}
	scopes := []map[string]string{{xmlNamespace: "xml"}}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		if err != nil {
			return nil, err
		}

		parent := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			scope := pushScope(scopes[len(scopes)-1], t.Attr)
			el := &node{name: qualify(t.Name, scope), attrs: qualifyAttrs(t.Attr, scope)}
			parent.children = append(parent.children, el)
			stack = append(stack, el)
			scopes = append(scopes, scope)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]
		case xml.CharData:
			s := strings.TrimSpace(string(t))
			if s != "" {
				parent.children = append(parent.children, &node{text: s, isText: true})
			}
		}
	}
}

const (
	xmlNamespace   = "http://www.w3.org/XML/1998/namespace"
	xmlnsNamespace = "xmlns"
)

// pushScope returns the namespace → prefix map for an element, extending
// parent with the element's own declarations.
func pushScope(parent map[string]string, attrs []xml.Attr) map[string]string {
	scope := parent
	copied := false
	for _, a := range attrs {
		var prefix string
		switch {
		case a.Name.Space == xmlnsNamespace:
			prefix = a.Name.Local
		case a.Name.Space == "" && a.Name.Local == xmlnsNamespace:
			prefix = ""
		default:
			continue
		}
		if !copied {
			scope = make(map[string]string, len(parent)+1)
			for k, v := range parent {
				scope[k] = v
			}
			copied = true
		}
		scope[a.Value] = prefix
	}
	return scope
}

// qualify restores the source prefix of a resolved name.
func qualify(name xml.Name, scope map[string]string) string {
	if name.Space == "" {
		return name.Local
	}
	if prefix, ok := scope[name.Space]; ok {
		if prefix == "" {
			return name.Local
		}
		return prefix + ":" + name.Local
	}
	// Undeclared prefixes are left unresolved by the decoder.
	return name.Space + ":" + name.Local
}

func qualifyAttrs(attrs []xml.Attr, scope map[string]string) []xml.Attr {
	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		switch {
		case a.Name.Space == xmlnsNamespace:
			a.Name = xml.Name{Local: xmlnsNamespace + ":" + a.Name.Local}
		case a.Name.Space != "":
			a.Name = xml.Name{Local: qualify(a.Name, scope)}
		}
		out = append(out, a)
	}
	return out
}

// Format re-serializes arbitrary XML with two-space indentation and a
// leading XML declaration. Inter-element whitespace is dropped and text is
// trimmed. Unparseable input fails with a *FormatError.
func Format(text string) (string, error) {
	doc, err := parse(text)
	if err != nil {
		return "", &FormatError{Err: err}
	}

	var buf bytes.Buffer
	buf.WriteString(Declaration)
	for _, c := range doc.children {
		buf.WriteByte('\n')
		writeNode(&buf, c, 0)
	}
	return buf.String(), nil
}

func writeNode(buf *bytes.Buffer, n *node, depth int) {
	pad := strings.Repeat(indent, depth)
	if n.isText {
		buf.WriteString(pad)
		escape(buf, n.text)
		return
	}

	buf.WriteString(pad)
	buf.WriteByte('<')
	buf.WriteString(n.name)
	for _, a := range n.attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name.Local)
		buf.WriteString(`="`)
		escape(buf, a.Value)
		buf.WriteByte('"')
	}
	buf.WriteByte('>')

	if textOnly(n) {
		for _, c := range n.children {
			escape(buf, c.text)
		}
	} else {
		for _, c := range n.children {
			buf.WriteByte('\n')
			writeNode(buf, c, depth+1)
		}
		buf.WriteByte('\n')
		buf.WriteString(pad)
	}

	buf.WriteString("</")
	buf.WriteString(n.name)
	buf.WriteByte('>')
}

// textOnly reports whether n can be printed on one line.
func textOnly(n *node) bool {
	for _, c := range n.children {
		if !c.isText {
			return false
		}
	}
	return true
}

func escape(buf *bytes.Buffer, s string) {
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(buf, []byte(s))
}
