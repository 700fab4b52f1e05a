package cli

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
)

func TestRequestOptions(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.json")
	writeTestFile(t, data, `{"title": "Five tips", "tip_zeta": "first", "tip_alpha": "second"}`)
	layout := filepath.Join(dir, "layout.html")
	writeTestFile(t, layout, "<h1>{{ title }}</h1>")
	css := filepath.Join(dir, "extra.css")
	writeTestFile(t, css, "h1 { color: red; }")
	assetList := filepath.Join(dir, "assets.yaml")
	writeTestFile(t, assetList, `
- asset_type: design_svg_cover
  file_url: /uploads/cover.svg
  sort_order: 1
- asset_type: reference_file
  file_url: /uploads/brief.pdf
`)
	zones := filepath.Join(dir, "zones.yaml")
	writeTestFile(t, zones, "title:\n  x: 80\n  y: 120\n")

	o := requestOptions{
		contentType: "carousel",
		dataFile:    data,
		layoutFile:  layout,
		cssFile:     css,
		assetsFile:  assetList,
		zonesFile:   zones,
		contentID:   "launch",
	}
	o.brand.Name = "Acme"

	req, err := o.request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Type != content.Carousel || req.ContentID != "launch" || req.Brand.Name != "Acme" {
		t.Errorf("request = %+v", req)
	}
	if diff := cmp.Diff([]string{"title", "tip_zeta", "tip_alpha"}, req.KeyOrder); diff != "" {
		t.Errorf("key order (-want +got):\n%s", diff)
	}
	if req.LayoutOverride != "<h1>{{ title }}</h1>" || req.CSSOverride != "h1 { color: red; }" {
		t.Errorf("overrides = %q / %q", req.LayoutOverride, req.CSSOverride)
	}
	wantAssets := []assets.Asset{
		{Type: assets.DesignSVGCover, FileURL: "/uploads/cover.svg", SortOrder: 1},
		{Type: assets.ReferenceFile, FileURL: "/uploads/brief.pdf"},
	}
	if diff := cmp.Diff(wantAssets, req.Assets); diff != "" {
		t.Errorf("assets (-want +got):\n%s", diff)
	}
	if z, ok := req.Zones["title"]; !ok || z.X != 80 || z.Y != 120 {
		t.Errorf("zones = %+v", req.Zones)
	}
}

func TestRequestOptionsErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	writeTestFile(t, bad, `{"title": `)

	tests := []struct {
		name string
		opts requestOptions
		code errors.Code
	}{
		{"no type", requestOptions{dataFile: bad}, errors.ErrCodeInvalidInput},
		{"no data", requestOptions{contentType: "meme"}, errors.ErrCodeInvalidInput},
		{"bad json", requestOptions{contentType: "meme", dataFile: bad}, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.request()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestWriteOutput(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "dir", "out.png")
	if err := writeOutput(dst, []byte("PNG")); err != nil {
		t.Fatalf("writeOutput: %v", err)
	}
}
