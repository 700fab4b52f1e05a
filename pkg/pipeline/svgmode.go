package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/brand"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/svgtext"
)

// generateSVG mutates the template SVGs with data and wraps them in HTML.
// Carousels get a cover, one page per slide and a CTA page; the cover and
// CTA fall back to the slide SVG.
func (e *Engine) generateSVG(ctx context.Context, t content.VisualType, data content.Data, svgs map[string]string, b brand.Brand, spec content.Spec) (string, error) {
	if t != content.Carousel {
		src, err := e.loader.LoadSVG(ctx, svgs[assets.DesignSVG])
		if err != nil {
			return "", err
		}
		out, err := svgtext.Replace(src, Replacements(data.Strings(), b))
		if err != nil {
			return "", err
		}
		return WrapSVG(out, spec.Width, spec.Height), nil
	}

	slide := svgs[assets.DesignSVGSlide]
	slides := data.Items("slides")
	urls := make([]string, 0, len(slides)+2)
	urls = append(urls, firstNonEmpty(svgs[assets.DesignSVGCover], slide))
	for range slides {
		urls = append(urls, slide)
	}
	urls = append(urls, firstNonEmpty(svgs[assets.DesignSVGCTA], slide))

	sources, err := e.loader.LoadAll(ctx, urls)
	if err != nil {
		return "", err
	}

	fields := make([]map[string]string, len(urls))
	fields[0] = data.Strings()
	for i, s := range slides {
		fields[i+1] = stringFields(s)
	}
	fields[len(fields)-1] = data.Strings()

	pages := make([]string, len(sources))
	for i, src := range sources {
		out, err := svgtext.Replace(src, Replacements(fields[i], b))
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		pages[i] = out
	}
	return WrapSVGPages(pages, spec.Width, spec.Height), nil
}

// Replacements orders fields by name and appends the brand name and
// website, so brand values win over data fields that match the same node.
func Replacements(fields map[string]string, b brand.Brand) []svgtext.Replacement {
	reps := svgtext.Sorted(fields)
	if b.Name != "" {
		reps = append(reps, svgtext.Replacement{Field: "brand_name", Text: b.Name})
	}
	if b.Website != "" {
		reps = append(reps, svgtext.Replacement{Field: "brand_website", Text: b.Website})
	}
	return reps
}

// WrapSVG embeds a single SVG in a document sized w×h.
func WrapSVG(svg string, w, h int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="UTF-8">
<style>
*{margin:0;padding:0;}
body{width:%[1]dpx;height:%[2]dpx;overflow:hidden;}
svg{width:%[1]dpx;height:%[2]dpx;display:block;}
</style></head>
<body>%[3]s</body></html>`, w, h, svg)
}

// WrapSVGPages embeds one SVG per printed page.
func WrapSVGPages(svgs []string, w, h int) string {
	var b strings.Builder
	for _, s := range svgs {
		b.WriteString(`<div class="page">`)
		b.WriteString(s)
		b.WriteString("</div>\n")
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="UTF-8">
<style>
*{margin:0;padding:0;}
.page{width:%[1]dpx;height:%[2]dpx;overflow:hidden;page-break-after:always;}
.page:last-child{page-break-after:auto;}
.page svg{width:100%%;height:100%%;display:block;}
</style></head>
<body>%[3]s</body></html>`, w, h, b.String())
}

func stringFields(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" {
			out[k] = s
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

