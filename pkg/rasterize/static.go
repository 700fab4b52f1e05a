package rasterize

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
)

// Static draws the first <svg> element of a document in-process. It supports
// PNG only, and oksvg skips text elements, so the result is a layout preview
// rather than a final asset.
type Static struct{}

// Rasterize implements Rasterizer.
func (Static) Rasterize(ctx context.Context, job Job) ([]byte, error) {
	if job.Format == content.FormatPDF {
		return nil, errors.New(errors.ErrCodeUnsupported, "static rasterizer cannot produce pdf")
	}
	svg := ExtractSVG(job.HTML)
	if svg == "" {
		return nil, errors.New(errors.ErrCodeUnsupported, "static rasterizer needs an inline svg document")
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSVG, err, "parse svg")
	}

	w := int(float64(job.Width) * job.scale())
	h := int(float64(job.Height) * job.scale())
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid size %dx%d", job.Width, job.Height)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close implements Rasterizer.
func (Static) Close() error { return nil }

// ExtractSVG returns the first <svg>...</svg> element in doc, or "".
func ExtractSVG(doc string) string {
	start := strings.Index(doc, "<svg")
	end := strings.LastIndex(doc, "</svg>")
	if start < 0 || end < start {
		return ""
	}
	return doc[start : end+len("</svg>")]
}
