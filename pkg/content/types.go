package content

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/siete/assetforge/pkg/errors"
)

// VisualType identifies a kind of visual asset.
type VisualType string

const (
	Carousel    VisualType = "carousel"
	MeetTheTeam VisualType = "meet_the_team"
	Meme        VisualType = "meme"
	CaseStudy   VisualType = "case_study"
	Infografia  VisualType = "infografia"
)

// Output formats.
const (
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Spec describes the default template and output geometry of a visual type.
type Spec struct {
	File   string `json:"file"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ContentType returns the MIME type of the output format.
func (s Spec) ContentType() string {
	if s.Format == FormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

var specs = map[VisualType]Spec{
	Carousel:    {File: "carousel.html", Format: FormatPDF, Width: 1080, Height: 1080},
	MeetTheTeam: {File: "meet_the_team.html", Format: FormatPNG, Width: 1080, Height: 1350},
	Meme:        {File: "meme.html", Format: FormatPNG, Width: 1080, Height: 1350},
	CaseStudy:   {File: "caso_exito.html", Format: FormatPNG, Width: 1080, Height: 1350},
	Infografia:  {File: "infografia.html", Format: FormatPNG, Width: 1080, Height: 1350},
}

// Lookup returns the Spec for a visual type.
func Lookup(t VisualType) (Spec, error) {
	s, ok := specs[t]
	if !ok {
		return Spec{}, errors.New(errors.ErrCodeInvalidContentType, "unknown visual content type: %q", string(t))
	}
	return s, nil
}

// IsVisual reports whether t produces a visual asset.
func IsVisual(t VisualType) bool {
	_, ok := specs[t]
	return ok
}

// Types returns all visual types in sorted order.
func Types() []VisualType {
	out := make([]VisualType, 0, len(specs))
	for t := range specs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Field is a canonical field name and the aliases that may stand in for it.
type Field struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Schema is the field table of one visual type.
type Schema struct {
	// Array names the list field rebuilt from flat text (slides, key_metrics).
	Array  string  `yaml:"array"`
	Fields []Field `yaml:"fields"`
}

// Metadata keys that pass through normalization untouched.
var metadataFields = []string{"_model", "_tokens"}

//go:embed fields.yaml
var fieldsYAML []byte

var schemas = mustLoadSchemas(fieldsYAML)

func mustLoadSchemas(raw []byte) map[VisualType]Schema {
	var m map[VisualType]Schema
	if err := yaml.Unmarshal(raw, &m); err != nil {
		// The manifest is embedded at build time.
		panic(fmt.Sprintf("content: parse fields.yaml: %v", err))
	}
	for t := range m {
		if _, ok := specs[t]; !ok {
			panic(fmt.Sprintf("content: fields.yaml lists unknown type %q", t))
		}
	}
	return m
}

// SchemaFor returns the field table for t.
func SchemaFor(t VisualType) (Schema, bool) {
	s, ok := schemas[t]
	return s, ok
}

// ArrayField returns the list field of t, or "" when t has none.
func ArrayField(t VisualType) string {
	return schemas[t].Array
}
