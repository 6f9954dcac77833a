package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"bold-client-go/internal/model"
)

// ExtractXML converts the direct children of the root element named tag
// ("match" for identification, "record" otherwise) into records, one per
// element, walking the field mapping table in order.
//
// Text that is not well-formed XML yields a *MalformedPayloadError.
func ExtractXML(text, tag string) ([]model.Record, error) {
	tree, err := parseXMLTree(text)
	if err != nil {
		return nil, err
	}

	if tag == "" {
		return nil, errors.New("invalid record tag " + strconv.Quote(tag))
	}
	tagSel := elementNamed(tag)

	doc := goquery.NewDocumentFromNode(tree)

	records := []model.Record{}
	doc.Children().ChildrenMatcher(tagSel).Each(func(_ int, s *goquery.Selection) {
		records = append(records, extractRecord(s))
	})
	return records, nil
}

// extractRecord applies the inclusion and multiplicity rules: a key appears
// only when its path matched at least one node; one match gives a scalar,
// several give the texts in document order.
func extractRecord(elem *goquery.Selection) model.Record {
	rec := make(model.Record)

	for _, f := range fieldTable {
		sel := elem
		for _, step := range f.steps {
			sel = sel.ChildrenMatcher(step)
			if sel.Length() == 0 {
				break
			}
		}

		switch n := sel.Length(); {
		case n == 0:
			continue
		case n == 1:
			text, ok := nodeText(sel.Nodes[0])
			rec[f.Key] = coerce(f.Kind, text, ok)
		default:
			list := make([]string, n)
			for i, node := range sel.Nodes {
				list[i], _ = nodeText(node)
			}
			rec[f.Key] = list
		}
	}

	return rec
}

// nodeText returns the text that precedes the first child element. ok is
// false when the element carries no text.
func nodeText(n *html.Node) (string, bool) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil && c.Type == html.TextNode; c = c.NextSibling {
		sb.WriteString(c.Data)
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

func coerce(kind FieldKind, text string, ok bool) any {
	if !ok {
		return nil
	}
	if kind == KindFloat {
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil
		}
		return f
	}
	return text
}

// utf8BOM may precede the XML declaration of a well-formed document
const utf8BOM = "\ufeff"

// elementNamed matches elements by exact, case-sensitive name
func elementNamed(name string) cascadia.Selector {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

// parseXMLTree strictly decodes text into an html.Node tree that goquery can
// walk. Names keep their case.
func parseXMLTree(text string) (*html.Node, error) {
	text = strings.TrimPrefix(text, utf8BOM)

	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	doc := &html.Node{Type: html.DocumentNode}
	cur := doc
	roots := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedPayloadError{Reason: "syntax error", cause: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if cur == doc {
				roots++
				if roots > 1 {
					return nil, &MalformedPayloadError{Reason: "multiple root elements"}
				}
			}
			n := &html.Node{Type: html.ElementNode, Data: t.Name.Local}
			for _, a := range t.Attr {
				n.Attr = append(n.Attr, html.Attribute{Key: a.Name.Local, Val: a.Value})
			}
			cur.AppendChild(n)
			cur = n
		case xml.EndElement:
			cur = cur.Parent
		case xml.CharData:
			if cur == doc {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, &MalformedPayloadError{Reason: "text outside root element"}
				}
				continue
			}
			cur.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
		}
	}

	if roots == 0 {
		return nil, &MalformedPayloadError{Reason: "no root element"}
	}
	return doc, nil
}
