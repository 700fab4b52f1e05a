// Package pipeline turns normalized content into rendered visual assets.
//
// This package implements the generate → rasterize pipeline shared by the
// CLI, the HTTP API and the design-tool providers. Centralizing it keeps the
// rendering modes and their precedence identical across entry points.
//
// # Rendering Modes
//
// [Engine.GenerateHTML] picks the first mode the request qualifies for:
//
//  1. SVG template: the template has editable SVG assets; text nodes are
//     replaced by id or data-field and the SVGs are wrapped in HTML.
//  2. Overlay: the template has raster design backgrounds and text zones;
//     text is positioned over the images.
//  3. Custom HTML: the template carries its own layout source.
//  4. Default HTML: the built-in layout for the visual type.
//
// The resulting document is rasterized by headless Chrome into PNG, or into
// a multi-page PDF for carousels.
//
// # Usage
//
//	eng := pipeline.NewEngine(pipeline.Options{
//	    Templates:  templates,
//	    Loader:     assets.NewLoader(fetcher, dirs...),
//	    Rasterizer: rasterize.NewBrowser(rasterize.DefaultBrowserOptions(), logger),
//	    RendersDir: "/tmp/assetforge/renders",
//	})
//	runner := pipeline.NewRunner(eng, cache, nil, logger)
//	art, err := runner.Render(ctx, pipeline.Request{
//	    Type: content.Carousel,
//	    Data: data,
//	})
package pipeline

import (
	"github.com/charmbracelet/log"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/brand"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/overlay"
)

// Mode identifies how a document was generated.
type Mode string

const (
	ModeSVG         Mode = "svg_template"
	ModeOverlay     Mode = "overlay"
	ModeCustomHTML  Mode = "custom_html"
	ModeDefaultHTML Mode = "default_html"
	// ModeEdited marks documents supplied by the caller.
	ModeEdited Mode = "edited_html"
	// ModeSVGStatic marks SVG documents rasterized without a browser. The
	// static renderer draws shapes and images but no text.
	ModeSVGStatic Mode = "svg_static"

	// Design-tool renders.
	ModeCanva Mode = "canva"
	ModeFigma Mode = "figma"
)

// Request describes one content item to render.
type Request struct {
	Type content.VisualType `json:"content_type"`
	Data content.Data       `json:"content_data"`

	// KeyOrder is the key order of Data as it was decoded. It decides slide
	// order when slides are rebuilt from flat fields.
	KeyOrder []string `json:"-"`

	// ContentID names the output file; a random id is used when empty.
	ContentID string `json:"content_id,omitempty"`

	LayoutOverride string         `json:"visual_layout,omitempty"`
	CSSOverride    string         `json:"visual_css,omitempty"`
	Assets         []assets.Asset `json:"assets,omitempty"`
	Brand          brand.Brand    `json:"brand"`
	Zones          overlay.Zones  `json:"zones,omitempty"`

	// Logger overrides the engine logger for this request.
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the request and fills defaults. It is
// idempotent.
func (r *Request) ValidateAndSetDefaults() error {
	if r.validated {
		return nil
	}
	if !content.IsVisual(r.Type) {
		return errors.New(errors.ErrCodeInvalidContentType,
			"unknown visual content type: %q (supported: %v)", string(r.Type), content.Types())
	}
	if len(r.Data) == 0 {
		return errors.New(errors.ErrCodeEmptyContent, "content_data is empty; cannot render without content")
	}
	if r.ContentID != "" {
		if err := errors.ValidateID(r.ContentID); err != nil {
			return err
		}
	}
	r.Brand = r.Brand.WithDefaults()
	r.validated = true
	return nil
}

// Artifact is a rendered asset.
type Artifact struct {
	ID       string             `json:"id"`
	FileName string             `json:"file_name"`
	Path     string             `json:"file_path,omitempty"`
	Type     content.VisualType `json:"content_type"`
	Format   string             `json:"format"`
	Mode     Mode               `json:"mode"`
	HTML     string             `json:"rendered_html"`
	Data     []byte             `json:"-"`
	Cached   bool               `json:"cached,omitempty"`
	// Degraded is set when the artifact came from the static fallback.
	Degraded bool `json:"degraded,omitempty"`
}

// ContentType returns the MIME type of the artifact.
func (a *Artifact) ContentType() string {
	if a.Format == content.FormatPDF {
		return "application/pdf"
	}
	return "image/png"
}
