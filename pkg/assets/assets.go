// Package assets classifies template assets and loads the files they point to.
//
// A template carries uploaded files: raster design backgrounds for overlay
// mode, editable SVGs for SVG mode, and reference files that never render.
// [DesignAssets] and [SVGAssets] decide whether a template qualifies for a
// mode; [Loader] reads SVG sources from disk or HTTP with path confinement.
package assets

import (
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siete/assetforge/pkg/content"
)

// Asset types.
const (
	DesignBackground = "design_background"
	DesignCover      = "design_cover"
	DesignSlide      = "design_slide"
	DesignCTA        = "design_cta"

	DesignSVG      = "design_svg"
	DesignSVGCover = "design_svg_cover"
	DesignSVGSlide = "design_svg_slide"
	DesignSVGCTA   = "design_svg_cta"

	ReferenceFile = "reference_file"
)

var (
	designTypes = map[string]bool{DesignBackground: true, DesignCover: true, DesignSlide: true, DesignCTA: true}
	svgTypes    = map[string]bool{DesignSVG: true, DesignSVGCover: true, DesignSVGSlide: true, DesignSVGCTA: true}
)

// Asset is a file attached to a template.
type Asset struct {
	Type      string `json:"asset_type" bson:"asset_type" yaml:"asset_type"`
	FileURL   string `json:"file_url" bson:"file_url" yaml:"file_url"`
	Name      string `json:"name,omitempty" bson:"name,omitempty" yaml:"name"`
	SortOrder int    `json:"sort_order" bson:"sort_order" yaml:"sort_order"`
}

// Renderable drops reference files and orders the rest by SortOrder.
func Renderable(list []Asset) []Asset {
	out := make([]Asset, 0, len(list))
	for _, a := range list {
		if a.Type != ReferenceFile {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// ByType maps asset type to file URL. Later entries win.
func ByType(list []Asset) map[string]string {
	out := make(map[string]string, len(list))
	for _, a := range list {
		if a.Type != "" && a.FileURL != "" {
			out[a.Type] = a.FileURL
		}
	}
	return out
}

// DesignAssets returns the raster design backgrounds of list when they are
// enough for overlay mode: design_background for single-page types,
// design_slide for carousels. Otherwise it returns an empty map.
func DesignAssets(list []Asset, t content.VisualType) map[string]string {
	return pick(list, designTypes, t, DesignBackground, DesignSlide)
}

// SVGAssets returns the SVG templates of list when they are enough for SVG
// mode: design_svg for single-page types, design_svg_slide for carousels.
func SVGAssets(list []Asset, t content.VisualType) map[string]string {
	return pick(list, svgTypes, t, DesignSVG, DesignSVGSlide)
}

func pick(list []Asset, types map[string]bool, t content.VisualType, single, carousel string) map[string]string {
	found := make(map[string]string)
	for _, a := range list {
		if types[a.Type] && a.FileURL != "" {
			found[a.Type] = a.FileURL
		}
	}
	need := single
	if t == content.Carousel {
		need = carousel
	}
	if _, ok := found[need]; !ok {
		return map[string]string{}
	}
	return found
}

// ResolveImageURL inlines file:// URLs that exist on disk as base64 data URIs
// so the headless browser can load them from a document set via content.
// Other URLs are returned unchanged.
func ResolveImageURL(url string) string {
	path, ok := strings.CutPrefix(url, "file://")
	if !ok {
		return url
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return url
	}
	typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if typ == "" {
		typ = "image/png"
	}
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = typ[:i]
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(data)
}
