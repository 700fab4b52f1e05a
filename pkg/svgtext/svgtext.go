package svgtext

import (
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/siete/assetforge/pkg/errors"
)

// Replacement assigns Text to every text element matching Field.
type Replacement struct {
	Field string
	Text  string
}

// Sorted converts a field map into replacements ordered by field name.
func Sorted(m map[string]string) []Replacement {
	out := make([]Replacement, 0, len(m))
	for k, v := range m {
		out = append(out, Replacement{Field: k, Text: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Node describes one text element of an SVG document.
type Node struct {
	ID        string `json:"id,omitempty"`
	DataField string `json:"data_field,omitempty"`
	Text      string `json:"text"`
	Lines     int    `json:"lines"`
}

// Replace applies the replacements in order and returns the new document.
// Replacements with empty text are skipped. A text element matches a field
// when its lower-cased id contains the lower-cased field name, or when its
// data-field attribute equals it. Later replacements win on overlap.
func Replace(svg string, reps []Replacement) (string, error) {
	doc, err := parse(svg)
	if err != nil {
		return "", err
	}
	root := doc.Root()

	for _, r := range reps {
		if r.Text == "" {
			continue
		}
		field := strings.ToLower(r.Field)
		for _, el := range findText(root, field) {
			setText(el, r.Text)
		}
	}

	out, err := doc.WriteToString()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidSVG, err, "serialize svg")
	}
	return out, nil
}

// TextNodes lists every <text> element in document order.
func TextNodes(svg string) ([]Node, error) {
	doc, err := parse(svg)
	if err != nil {
		return nil, err
	}
	var nodes []Node
	walk(doc.Root(), func(el *etree.Element) {
		if el.Tag != "text" {
			return
		}
		spans := tspans(el)
		n := Node{
			ID:        el.SelectAttrValue("id", ""),
			DataField: el.SelectAttrValue("data-field", ""),
			Lines:     len(spans),
		}
		if len(spans) == 0 {
			n.Text = el.Text()
			n.Lines = 1
		} else {
			lines := make([]string, len(spans))
			for i, s := range spans {
				lines[i] = s.Text()
			}
			n.Text = strings.Join(lines, "\n")
		}
		nodes = append(nodes, n)
	})
	return nodes, nil
}

func parse(svg string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(svg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSVG, err, "parse svg")
	}
	if doc.Root() == nil {
		return nil, errors.New(errors.ErrCodeInvalidSVG, "svg has no root element")
	}
	// Drop the prolog so the markup can be inlined into HTML.
	for i := len(doc.Child) - 1; i >= 0; i-- {
		switch doc.Child[i].(type) {
		case *etree.ProcInst, *etree.Directive:
			doc.RemoveChildAt(i)
		}
	}
	return doc, nil
}

func findText(root *etree.Element, field string) []*etree.Element {
	var matches []*etree.Element
	walk(root, func(el *etree.Element) {
		if el.Tag != "text" {
			return
		}
		id := strings.ToLower(el.SelectAttrValue("id", ""))
		if strings.Contains(id, field) || el.SelectAttrValue("data-field", "") == field {
			matches = append(matches, el)
		}
	})
	return matches
}

func setText(el *etree.Element, text string) {
	spans := tspans(el)
	if len(spans) == 0 {
		el.SetText(text)
		return
	}
	lines := strings.Split(text, "\n")
	for i, s := range spans {
		if i < len(lines) {
			s.SetText(lines[i])
		} else {
			s.SetText("")
		}
	}
}

// tspans returns the <tspan> descendants of el at any depth.
func tspans(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		walk(c, func(d *etree.Element) {
			if d.Tag == "tspan" {
				out = append(out, d)
			}
		})
	}
	return out
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, c := range el.ChildElements() {
		walk(c, fn)
	}
}
