package overlay

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/content"
)

const fontLink = `<link href="https://fonts.googleapis.com/css2?family=Inter:wght@300;400;500;600;700;800;900` +
	`&family=Playfair+Display:wght@700;800;900&display=swap" rel="stylesheet">`

// ZoneHTML renders text inside z. Empty text renders nothing.
func ZoneHTML(text string, z Zone) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	if z.BgFill != "" && z.BgFill != "transparent" {
		x, y, w, h := z.cover()
		fmt.Fprintf(&b, `<div style="position:absolute;top:%spx;left:%spx;width:%spx;height:%spx;background:%s;z-index:1;"></div>`,
			num(y), num(x), num(w), num(h), z.BgFill)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, `<div style="position:absolute;top:%spx;left:%spx;width:%spx;height:%spx;`+
		`font-size:%spx;font-weight:%d;font-family:'%s',sans-serif;color:%s;`+
		`text-align:%s;line-height:%s;text-transform:%s;padding:%spx;`+
		`overflow:hidden;z-index:2;display:flex;align-items:flex-start;">`+
		`<span>%s</span></div>`,
		num(z.Y), num(z.X), num(z.Width), num(z.Height),
		num(z.FontSize), z.FontWeight, z.FontFamily, z.Color,
		z.Align, num(z.LineHeight), z.TextTransform, num(z.Padding),
		html.EscapeString(text))
	return b.String()
}

// Compose builds the overlay document for data. designs maps design asset
// types to image URLs; carousels get one page per slide between a cover
// and a CTA page.
func Compose(t content.VisualType, data content.Data, designs map[string]string, zones Zones, spec content.Spec) string {
	if t == content.Carousel {
		return composeCarousel(data, designs, zones, spec)
	}
	return composeSingle(data, designs, zones, spec)
}

func composeCarousel(data content.Data, designs map[string]string, zones Zones, spec content.Spec) string {
	slide := designs[assets.DesignSlide]
	coverBg := assets.ResolveImageURL(firstNonEmpty(designs[assets.DesignCover], slide))
	slideBg := assets.ResolveImageURL(slide)
	ctaBg := assets.ResolveImageURL(firstNonEmpty(designs[assets.DesignCTA], slide))

	var pages []string

	var cover strings.Builder
	for _, field := range []string{"title", "social_caption"} {
		if z, ok := zones[field]; ok {
			cover.WriteString(ZoneHTML(text(data[field]), z))
		}
	}
	pages = append(pages, page(coverBg, cover.String()))

	headline, hasHeadline := zones["slide_headline"]
	body, hasBody := zones["slide_body"]
	for _, s := range data.Items("slides") {
		var b strings.Builder
		if hasHeadline {
			b.WriteString(ZoneHTML(text(s["headline"]), headline))
		}
		if hasBody {
			b.WriteString(ZoneHTML(text(s["body"]), body))
		}
		pages = append(pages, page(slideBg, b.String()))
	}

	var cta string
	if z, ok := zones["cta"]; ok {
		cta = ZoneHTML(text(data["cta"]), z)
	}
	pages = append(pages, page(ctaBg, cta))

	w, h := spec.Width, spec.Height
	return `<!DOCTYPE html>
<html><head><meta charset="UTF-8">` + fontLink + `
<style>
*{margin:0;padding:0;box-sizing:border-box;}
body{width:` + strconv.Itoa(w) + `px;font-family:'Inter',sans-serif;}
.page{width:` + strconv.Itoa(w) + `px;height:` + strconv.Itoa(h) + `px;position:relative;overflow:hidden;
background-size:cover;background-position:center;background-repeat:no-repeat;
page-break-after:always;}
.page:last-child{page-break-after:auto;}
</style></head>
<body>` + strings.Join(pages, "\n") + `</body></html>`
}

func composeSingle(data content.Data, designs map[string]string, zones Zones, spec content.Spec) string {
	bg := assets.ResolveImageURL(designs[assets.DesignBackground])

	var parts []string
	for _, field := range zones.Names() {
		z := zones[field]
		switch v := data[field].(type) {
		case string:
			if v != "" {
				parts = append(parts, ZoneHTML(v, z))
			}
		case []any, []map[string]any:
			for _, item := range data.Items(field) {
				parts = append(parts, ZoneHTML(itemText(item), z))
			}
		}
	}

	return `<!DOCTYPE html>
<html><head><meta charset="UTF-8">` + fontLink + `
<style>
*{margin:0;padding:0;box-sizing:border-box;}
body{width:` + strconv.Itoa(spec.Width) + `px;height:` + strconv.Itoa(spec.Height) + `px;font-family:'Inter',sans-serif;
position:relative;overflow:hidden;
background-image:url('` + bg + `');background-size:cover;background-position:center;
background-repeat:no-repeat;}
</style></head>
<body>` + strings.Join(parts, "\n") + `</body></html>`
}

func page(bg, zones string) string {
	return `<div class="page" style="background-image:url('` + bg + `');">` + zones + `</div>`
}

// leadKeys come first when an array item is flattened to one line.
var leadKeys = []string{"headline", "title", "metric", "name", "body", "value", "role", "description"}

// itemText joins the values of an array item with an em dash separator,
// known keys first and the rest in sorted order.
func itemText(item map[string]any) string {
	seen := make(map[string]bool, len(item))
	var vals []string
	for _, k := range leadKeys {
		if v, ok := item[k]; ok {
			seen[k] = true
			vals = append(vals, text(v))
		}
	}
	rest := make([]string, 0, len(item))
	for k := range item {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		vals = append(vals, text(item[k]))
	}
	return strings.Join(vals, " — ")
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return num(x)
	default:
		return fmt.Sprint(x)
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
