package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/observability"
	"github.com/siete/assetforge/pkg/rasterize"
)

// Render generates the document for req, rasterizes it and writes the
// artifact to the renders directory.
func (e *Engine) Render(ctx context.Context, req Request) (*Artifact, error) {
	html, mode, err := e.GenerateHTML(ctx, req)
	if err != nil {
		return nil, err
	}
	spec, _ := content.Lookup(req.Type)
	data, mode, err := e.Rasterize(ctx, req.Type, rasterize.JobFor(html, spec), mode)
	if err != nil {
		return nil, err
	}
	return e.Write(req.ContentID, req.Type, spec.Format, mode, html, data)
}

// RenderFromHTML rasterizes a caller-supplied document after sanitizing it.
func (e *Engine) RenderFromHTML(ctx context.Context, html string, t content.VisualType, id string) (*Artifact, error) {
	spec, err := content.Lookup(t)
	if err != nil {
		return nil, err
	}
	clean := e.SanitizeHTML(html)
	if clean == "" {
		return nil, errors.New(errors.ErrCodeEmptyContent, "html is empty after sanitization")
	}
	data, _, err := e.Rasterize(ctx, t, rasterize.JobFor(clean, spec), ModeEdited)
	if err != nil {
		return nil, err
	}
	return e.Write(id, t, spec.Format, ModeEdited, clean, data)
}

// SanitizeHTML strips scripts and event handlers from an edited document.
func (e *Engine) SanitizeHTML(html string) string {
	return Sanitize(e.sanitizer, html)
}

// Rasterize renders job with the primary rasterizer. Single-page SVG
// documents are retried with the fallback rasterizer when it fails, in which
// case the returned mode is [ModeSVGStatic].
func (e *Engine) Rasterize(ctx context.Context, t content.VisualType, job rasterize.Job, mode Mode) ([]byte, Mode, error) {
	hooks := observability.Pipeline()
	hooks.OnRasterizeStart(ctx, string(t), job.Format)
	start := time.Now()

	data, err := e.raster.Rasterize(ctx, job)
	if err != nil && mode == ModeSVG && job.Format == content.FormatPNG && ctx.Err() == nil {
		e.logger.Warn("browser rasterization failed, using static svg renderer without text", "type", t, "error", err)
		mode = ModeSVGStatic
		data, err = e.fallback.Rasterize(ctx, job)
	}
	hooks.OnRasterizeComplete(ctx, string(t), job.Format, len(data), time.Since(start), err)
	if err != nil {
		return nil, mode, err
	}
	return data, mode, nil
}

// Write stores data as <id>.<format> in the renders directory. An empty id
// is replaced by a random UUID.
func (e *Engine) Write(id string, t content.VisualType, format string, mode Mode, html string, data []byte) (*Artifact, error) {
	if id == "" {
		id = uuid.NewString()
	} else if err := errors.ValidateID(id); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.rendersDir, 0o755); err != nil {
		return nil, fmt.Errorf("create renders dir: %w", err)
	}
	name := id + "." + format
	path := filepath.Join(e.rendersDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	return &Artifact{
		ID:       id,
		FileName: name,
		Path:     path,
		Type:     t,
		Format:   format,
		Mode:     mode,
		HTML:     html,
		Data:     data,
		Degraded: mode == ModeSVGStatic,
	}, nil
}
