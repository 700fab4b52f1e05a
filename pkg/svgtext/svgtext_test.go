package svgtext

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/siete/assetforge/pkg/errors"
)

const card = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="1080" height="1350">
  <g id="Frame 1">
    <text id="Person_Name_Layer">Jane Doe</text>
    <text data-field="role">Placeholder</text>
    <text id="quote">
      <tspan x="0" y="10">line one</tspan>
      <tspan x="0" y="30">line two</tspan>
      <tspan x="0" y="50">line three</tspan>
    </text>
    <rect id="person_name_bg" width="10" height="10"/>
    <image xlink:href="photo.png"/>
  </g>
</svg>`

func TestReplaceByIDAndDataField(t *testing.T) {
	out, err := Replace(card, Sorted(map[string]string{
		"person_name": "Ana López",
		"role":        "CTO",
	}))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	for _, want := range []string{">Ana López</text>", ">CTO</text>", `xmlns:xlink="http://www.w3.org/1999/xlink"`, `xlink:href="photo.png"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "<?xml") {
		t.Error("output must not carry an XML declaration")
	}
	if strings.Contains(out, "Jane Doe") || strings.Contains(out, "Placeholder") {
		t.Error("old text still present")
	}
}

func TestReplaceSpreadsLinesOverTspans(t *testing.T) {
	out, err := Replace(card, []Replacement{{Field: "quote", Text: "first\nsecond"}})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	nodes, err := TextNodes(out)
	if err != nil {
		t.Fatalf("TextNodes: %v", err)
	}
	var quote Node
	for _, n := range nodes {
		if n.ID == "quote" {
			quote = n
		}
	}
	if diff := cmp.Diff(Node{ID: "quote", Text: "first\nsecond\n", Lines: 3}, quote); diff != "" {
		t.Errorf("quote node mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceSkipsEmptyAndNonText(t *testing.T) {
	out, err := Replace(card, []Replacement{{Field: "person_name", Text: ""}})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !strings.Contains(out, "Jane Doe") {
		t.Error("empty replacement must leave text untouched")
	}
	if !strings.Contains(out, `<rect id="person_name_bg" width="10" height="10"/>`) {
		t.Error("non-text element should be untouched")
	}
}

func TestReplaceLaterWins(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><text id="brand_name">X</text></svg>`
	out, err := Replace(svg, []Replacement{
		{Field: "name", Text: "from data"},
		{Field: "brand_name", Text: "Acme"},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !strings.Contains(out, ">Acme</text>") {
		t.Errorf("expected brand replacement to win, got %s", out)
	}
}

func TestReplaceInvalidSVG(t *testing.T) {
	_, err := Replace(`<svg><text id=></text></svg>`, nil)
	if !errors.Is(err, errors.ErrCodeInvalidSVG) {
		t.Errorf("err = %v, want INVALID_SVG", err)
	}
	_, err = Replace("   ", nil)
	if !errors.Is(err, errors.ErrCodeInvalidSVG) {
		t.Errorf("empty doc err = %v, want INVALID_SVG", err)
	}
}

func TestTextNodes(t *testing.T) {
	nodes, err := TextNodes(card)
	if err != nil {
		t.Fatalf("TextNodes: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("len(nodes) = %d, want 3", len(nodes))
	}
	if nodes[0].ID != "Person_Name_Layer" || nodes[0].Text != "Jane Doe" {
		t.Errorf("nodes[0] = %+v", nodes[0])
	}
	if nodes[1].DataField != "role" {
		t.Errorf("nodes[1] = %+v", nodes[1])
	}
	if nodes[2].Lines != 3 {
		t.Errorf("nodes[2].Lines = %d, want 3", nodes[2].Lines)
	}
}
