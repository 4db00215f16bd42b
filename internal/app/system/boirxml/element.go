package boirxml

import (
	"encoding/xml"
	"strconv"
)

// Element is a generic XML node. Names carry the fc2 prefix literally.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",attr"`
	Value    string     `xml:",chardata"`
	Children []*Element `xml:",any"`
}

// Name returns the element name without the namespace prefix.
func (e *Element) Name() string {
	n := e.XMLName.Local
	if len(n) > len(prefix) && n[:len(prefix)] == prefix {
		return n[len(prefix):]
	}
	return n
}

// SeqNum returns the element's sequence number, or 0 when it has none.
func (e *Element) SeqNum() int {
	for _, a := range e.Attrs {
		if a.Name.Local == "SeqNum" {
			n, _ := strconv.Atoi(a.Value)
			return n
		}
	}
	return 0
}

// Child returns the first direct child with the given unprefixed name.
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Walk visits e and its descendants in document order.
func (e *Element) Walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// leaf appends a text element. Empty values are omitted entirely.
func (e *Element) leaf(name, value string) {
	if value == "" {
		return
	}
	e.Children = append(e.Children, &Element{XMLName: xml.Name{Local: prefix + name}, Value: value})
}

func (e *Element) flag(name string, on bool) {
	if on {
		e.leaf(name, "Y")
	}
}

func (e *Element) append(c *Element) *Element {
	e.Children = append(e.Children, c)
	return c
}

// Attachment names a document image referenced by the report.
type Attachment struct {
	SeqNum   int    // SeqNum of the PartyIdentification element
	FileName string // OriginalAttachmentFileName value
}

// Attachments lists the document images root references, in document order.
func Attachments(root *Element) []Attachment {
	var out []Attachment
	root.Walk(func(e *Element) {
		if e.Name() != "PartyIdentification" {
			return
		}
		if f := e.Child("OriginalAttachmentFileName"); f != nil {
			out = append(out, Attachment{SeqNum: e.SeqNum(), FileName: f.Value})
		}
	})
	return out
}
