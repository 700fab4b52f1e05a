// Package overlay composes design background images with positioned text
// zones into a standalone HTML document.
//
// A zone is a rectangle on the design where generated text is placed. When
// the design already shows placeholder copy at that spot, BgFill paints a
// cover rectangle (optionally larger than the text box) underneath the new
// text.
package overlay

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Zone is a text box positioned on a design image, in CSS pixels.
type Zone struct {
	X             float64 `json:"x" yaml:"x"`
	Y             float64 `json:"y" yaml:"y"`
	Width         float64 `json:"width" yaml:"width"`
	Height        float64 `json:"height" yaml:"height"`
	FontSize      float64 `json:"font_size" yaml:"font_size"`
	FontWeight    int     `json:"font_weight" yaml:"font_weight"`
	FontFamily    string  `json:"font_family" yaml:"font_family"`
	Color         string  `json:"color" yaml:"color"`
	Align         string  `json:"align" yaml:"align"`
	LineHeight    float64 `json:"line_height" yaml:"line_height"`
	TextTransform string  `json:"text_transform" yaml:"text_transform"`
	BgFill        string  `json:"bg_fill" yaml:"bg_fill"`
	Padding       float64 `json:"padding" yaml:"padding"`

	// Cover rectangle; nil means the text box.
	BgX      *float64 `json:"bg_x,omitempty" yaml:"bg_x,omitempty"`
	BgY      *float64 `json:"bg_y,omitempty" yaml:"bg_y,omitempty"`
	BgWidth  *float64 `json:"bg_width,omitempty" yaml:"bg_width,omitempty"`
	BgHeight *float64 `json:"bg_height,omitempty" yaml:"bg_height,omitempty"`
}

// DefaultZone returns a zone with every default applied.
func DefaultZone() Zone {
	return Zone{
		Width:         400,
		Height:        100,
		FontSize:      20,
		FontWeight:    400,
		FontFamily:    "Inter, sans-serif",
		Color:         "#000000",
		Align:         "left",
		LineHeight:    1.4,
		TextTransform: "none",
	}
}

// UnmarshalJSON decodes z on top of the defaults.
func (z *Zone) UnmarshalJSON(data []byte) error {
	type plain Zone
	p := plain(DefaultZone())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*z = Zone(p)
	return nil
}

// UnmarshalYAML decodes z on top of the defaults.
func (z *Zone) UnmarshalYAML(n *yaml.Node) error {
	type plain Zone
	p := plain(DefaultZone())
	if err := n.Decode(&p); err != nil {
		return err
	}
	*z = Zone(p)
	return nil
}

func (z Zone) cover() (x, y, w, h float64) {
	x, y, w, h = z.X, z.Y, z.Width, z.Height
	if z.BgX != nil {
		x = *z.BgX
	}
	if z.BgY != nil {
		y = *z.BgY
	}
	if z.BgWidth != nil {
		w = *z.BgWidth
	}
	if z.BgHeight != nil {
		h = *z.BgHeight
	}
	return
}

// Zones maps a content field name to the zone that displays it.
type Zones map[string]Zone

// Names returns the field names in sorted order.
func (zs Zones) Names() []string {
	names := make([]string, 0, len(zs))
	for k := range zs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FromMap converts a loosely typed zone map, as stored in a template's
// structure document, into Zones.
func FromMap(raw map[string]any) (Zones, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode zones: %w", err)
	}
	var zs Zones
	if err := json.Unmarshal(data, &zs); err != nil {
		return nil, fmt.Errorf("decode zones: %w", err)
	}
	return zs, nil
}

// ParseYAML reads a zone manifest:
//
//	title:
//	  x: 80
//	  y: 120
//	  font_size: 64
//	  bg_fill: "#ffffff"
func ParseYAML(r io.Reader) (Zones, error) {
	var zs Zones
	if err := yaml.NewDecoder(r).Decode(&zs); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode zones: %w", err)
	}
	return zs, nil
}
