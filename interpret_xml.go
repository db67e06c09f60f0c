package groupwire

import (
	"encoding/xml"
	"strings"
)

// xmlElementPriority is the literal search order for the gateway's
// XML result elements. A <result> element is always preferred, even
// when an <error> element is also present in the same document and
// <result> itself carries nothing usable; downstream callers depend on
// that precedence, so it is preserved as-is.
var xmlElementPriority = []string{"result", "ok", "error", "failed"}

// xmlNode is a schema-less view of a parsed element.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
	Text     string     `xml:",chardata"`
}

// attr returns the named attribute value and whether it is present.
func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// child returns the first child element with the given local name.
func (n *xmlNode) child(name string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return &n.Children[i]
		}
	}
	return nil
}

// findFirst searches depth-first for the first element with the given
// local name, returning it and its parent.
func findFirst(node, parent *xmlNode, name string) (*xmlNode, *xmlNode) {
	if node.XMLName.Local == name {
		return node, parent
	}
	for i := range node.Children {
		if found, p := findFirst(&node.Children[i], node, name); found != nil {
			return found, p
		}
	}
	return nil, nil
}

// xmlInterpreter normalizes the gateway's XML response shapes. The
// document is searched for the first element among <result>, <ok>,
// <error>, <failed>, in that priority order, and the outcome derives
// entirely from the winning element. A document with none of them is
// an uncoded error routed to the default handler chain.
type xmlInterpreter struct{}

func (xmlInterpreter) interpret(raw []byte) (*Outcome, error) {
	var root xmlNode
	if err := xml.Unmarshal(raw, &root); err != nil {
		return nil, &ParseError{DataType: DataTypeXML, Err: err}
	}

	for _, name := range xmlElementPriority {
		node, parent := findFirst(&root, nil, name)
		if node == nil {
			continue
		}
		out := interpretElement(name, node, parent)
		out.Raw = raw
		out.Payload = string(raw)
		return out, nil
	}

	return &Outcome{Kind: KindError, Raw: raw, Payload: string(raw)}, nil
}

func interpretElement(name string, node, parent *xmlNode) *Outcome {
	switch name {
	case "result":
		return interpretResult(node, parent)
	case "ok":
		return &Outcome{Kind: KindSuccess}
	case "error":
		code, _ := node.attr("cause")
		message, _ := node.attr("message")
		return &Outcome{Kind: KindError, Code: code, Message: message}
	case "failed":
		code, _ := node.attr("reason")
		return &Outcome{Kind: KindError, Code: code}
	}
	return &Outcome{Kind: KindError}
}

// interpretResult reduces a <result> element. Attributes are checked
// before text content: rc is an error/status code, msg a bare error
// message, success and ok boolean verdicts. With no usable attribute
// the trimmed text decides: "ok" is success, "bad" an error whose
// message comes from a sibling <message> element. Anything else is an
// uncoded error.
func interpretResult(node, parent *xmlNode) *Outcome {
	if rc, ok := node.attr("rc"); ok {
		message, _ := node.attr("msg")
		return &Outcome{Kind: KindError, Code: rc, Message: message}
	}
	if msg, ok := node.attr("msg"); ok {
		return &Outcome{Kind: KindError, Message: msg}
	}
	if success, ok := node.attr("success"); ok {
		return &Outcome{Kind: verdict(success)}
	}
	if okAttr, ok := node.attr("ok"); ok {
		return &Outcome{Kind: verdict(okAttr)}
	}

	switch strings.TrimSpace(node.Text) {
	case "ok":
		return &Outcome{Kind: KindSuccess}
	case "bad":
		message := ""
		if sibling := siblingMessage(node, parent); sibling != nil {
			message = strings.TrimSpace(sibling.Text)
		}
		return &Outcome{Kind: KindError, Message: message}
	}
	return &Outcome{Kind: KindError}
}

// siblingMessage locates the <message> element next to a <result>,
// falling back to a <message> child when <result> is the root.
func siblingMessage(node, parent *xmlNode) *xmlNode {
	if parent != nil {
		if m := parent.child("message"); m != nil {
			return m
		}
	}
	return node.child("message")
}

// verdict maps a boolean-ish attribute value to an outcome kind.
func verdict(value string) Kind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "ok", "yes":
		return KindSuccess
	}
	return KindError
}
