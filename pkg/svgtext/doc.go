// Package svgtext swaps text content inside SVG documents.
//
// Design tools export text layers as <text> elements whose id attribute is
// derived from the layer name (Figma) or that carry an explicit data-field
// attribute (hand-authored templates). [Replace] matches text elements to
// content fields by either of those and rewrites their text, spreading
// multi-line values across existing <tspan> children.
//
// Parsing never resolves external entities, and the output omits any XML
// declaration or doctype so the result can be inlined into HTML.
package svgtext
