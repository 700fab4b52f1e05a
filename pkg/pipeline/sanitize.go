package pipeline

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	documentElements = []string{"html", "head", "body", "meta", "title", "link", "style"}
	layoutElements   = []string{
		"div", "span", "p", "br", "hr", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "strong", "em", "b", "i", "u", "small", "img",
		"section", "header", "footer", "main", "article", "figure", "figcaption",
		"table", "thead", "tbody", "tr", "td", "th", "a",
	}
	svgElements = []string{
		"svg", "g", "defs", "symbol", "use", "path", "rect", "circle", "ellipse",
		"line", "polyline", "polygon", "text", "tspan", "textPath", "image",
		"linearGradient", "radialGradient", "stop", "clipPath", "mask", "pattern",
		"filter", "feGaussianBlur", "feOffset", "feBlend", "feColorMatrix",
		"feFlood", "feComposite", "feMerge", "feMergeNode", "feDropShadow",
	}
	presentationAttrs = []string{
		"style", "class", "id", "width", "height", "viewBox", "preserveAspectRatio",
		"xmlns", "version", "x", "y", "x1", "y1", "x2", "y2", "cx", "cy", "r", "rx", "ry",
		"dx", "dy", "d", "points", "transform", "fill", "fill-opacity", "fill-rule",
		"stroke", "stroke-width", "stroke-opacity", "stroke-linecap", "stroke-linejoin",
		"stroke-dasharray", "opacity", "clip-path", "clip-rule", "mask", "filter",
		"font-family", "font-size", "font-weight", "font-style", "letter-spacing",
		"text-anchor", "dominant-baseline", "text-decoration", "xml:space",
		"offset", "stop-color", "stop-opacity", "gradientUnits", "gradientTransform",
		"patternUnits", "stdDeviation", "in", "in2", "result", "mode", "values",
		"flood-color", "flood-opacity", "data-field", "alt", "charset", "name",
		"content", "rel", "lang", "colspan", "rowspan",
	}

	// Fragment references and data images only; scripts ride on xlink:href.
	xlinkHref = regexp.MustCompile(`^(#[\w-]+|data:image/(png|jpe?g|gif|webp|svg\+xml);base64,[A-Za-z0-9+/=\s]+|https?://\S+)$`)

	doctype = regexp.MustCompile(`(?i)^\s*<!doctype html>`)
)

// NewSanitizer builds the policy applied to user-edited HTML. It keeps the
// document shell, style sheets and inline SVG, and strips scripts, event
// handlers and javascript: URLs.
func NewSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	// <style> is only accepted with unsafe content enabled; <script> stays
	// disallowed.
	p.AllowUnsafe(true)
	// Bare elements such as <g>, <defs> and <tspan> carry structure; without
	// AllowNoAttrs bluemonday unwraps them.
	p.AllowNoAttrs().OnElements(documentElements...)
	p.AllowNoAttrs().OnElements(layoutElements...)
	p.AllowNoAttrs().OnElements(svgElements...)
	p.AllowAttrs(presentationAttrs...).Globally()
	p.AllowAttrs("xmlns:xlink").Globally()
	p.AllowAttrs("xlink:href").Matching(xlinkHref).Globally()
	p.AllowAttrs("href").OnElements("a", "link", "use", "image")
	p.AllowAttrs("src").OnElements("img")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(true)
	p.AllowDataURIImages()
	return p
}

// Sanitize cleans doc with p, keeping a leading HTML5 doctype.
func Sanitize(p *bluemonday.Policy, doc string) string {
	out := p.Sanitize(doc)
	if doctype.MatchString(doc) {
		out = "<!DOCTYPE html>\n" + strings.TrimLeft(out, "\n")
	}
	return out
}
