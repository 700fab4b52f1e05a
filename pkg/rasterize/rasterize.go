// Package rasterize turns standalone HTML documents into PNG or PDF bytes.
//
// [Browser] drives headless Chrome through the DevTools protocol and is the
// production renderer. [Static] draws a lone SVG in-process and serves as a
// degraded fallback when no browser is available.
package rasterize

import (
	"context"

	"github.com/siete/assetforge/pkg/content"
)

// DefaultScale is the device pixel ratio used for screenshots.
const DefaultScale = 2

// Job describes one document to rasterize.
type Job struct {
	HTML   string
	Width  int
	Height int
	Format string // content.FormatPNG or content.FormatPDF
	Scale  float64
}

// JobFor builds a Job sized and formatted for spec.
func JobFor(html string, spec content.Spec) Job {
	return Job{HTML: html, Width: spec.Width, Height: spec.Height, Format: spec.Format, Scale: DefaultScale}
}

func (j Job) scale() float64 {
	if j.Scale <= 0 {
		return DefaultScale
	}
	return j.Scale
}

// Rasterizer renders HTML to image or document bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, job Job) ([]byte, error)
	Close() error
}
