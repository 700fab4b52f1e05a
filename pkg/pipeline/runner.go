package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/observability"
	"github.com/siete/assetforge/pkg/rasterize"
)

// Runner wraps an Engine with the artifact cache and logging.
// Both CLI and API use it so identical documents are rasterized once.
//
// The Runner keeps no per-render state; multiple goroutines can share it.
type Runner struct {
	Engine *Engine
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner for eng.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(eng *Engine, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Engine: eng,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Render runs generate → rasterize → write with caching.
func (r *Runner) Render(ctx context.Context, req Request) (*Artifact, error) {
	if req.Logger == nil {
		req.Logger = r.Logger
	}
	genStart := time.Now()
	html, mode, err := r.Engine.GenerateHTML(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	r.Logger.Info("generated html",
		"type", req.Type,
		"mode", mode,
		"duration", time.Since(genStart))

	spec, _ := content.Lookup(req.Type)
	rasterStart := time.Now()
	data, mode, hit, err := r.RasterizeWithCacheInfo(ctx, req.Type, rasterize.JobFor(html, spec), mode)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	r.Logger.Info("rasterized",
		"format", spec.Format,
		"mode", mode,
		"bytes", len(data),
		"cached", hit,
		"duration", time.Since(rasterStart))

	art, err := r.Engine.Write(req.ContentID, req.Type, spec.Format, mode, html, data)
	if err != nil {
		return nil, err
	}
	art.Cached = hit
	return art, nil
}

// RenderFromHTML sanitizes and rasterizes an edited document with caching.
func (r *Runner) RenderFromHTML(ctx context.Context, html string, t content.VisualType, id string) (*Artifact, error) {
	spec, err := content.Lookup(t)
	if err != nil {
		return nil, err
	}
	clean := r.Engine.SanitizeHTML(html)
	if clean == "" {
		return nil, errors.New(errors.ErrCodeEmptyContent, "html is empty after sanitization")
	}
	data, _, hit, err := r.RasterizeWithCacheInfo(ctx, t, rasterize.JobFor(clean, spec), ModeEdited)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	r.Logger.Info("rasterized edited html", "type", t, "bytes", len(data), "cached", hit)

	art, err := r.Engine.Write(id, t, spec.Format, ModeEdited, clean, data)
	if err != nil {
		return nil, err
	}
	art.Cached = hit
	return art, nil
}

// RasterizeWithCacheInfo rasterizes job, reusing a cached artifact for the
// same type, document and geometry. It returns the mode the bytes were
// produced in and whether they came from the cache. Output of the static
// fallback is never cached.
func (r *Runner) RasterizeWithCacheInfo(ctx context.Context, t content.VisualType, job rasterize.Job, mode Mode) ([]byte, Mode, bool, error) {
	key := r.Keyer.ArtifactKey(cache.Hash([]byte(string(t)+"\x00"+job.HTML)), cache.ArtifactKeyOpts{
		Format: job.Format,
		Width:  job.Width,
		Height: job.Height,
		Scale:  job.Scale,
	})
	hooks := observability.Cache()

	if data, ok, err := r.Cache.Get(ctx, key); err == nil && ok {
		hooks.OnCacheHit(ctx, "artifact")
		return data, mode, true, nil
	}
	hooks.OnCacheMiss(ctx, "artifact")

	data, mode, err := r.Engine.Rasterize(ctx, t, job, mode)
	if err != nil {
		return nil, mode, false, err
	}
	if mode == ModeSVGStatic {
		return data, mode, false, nil
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		r.Logger.Warn("artifact cache write failed", "error", err)
	} else {
		hooks.OnCacheSet(ctx, "artifact", len(data))
	}
	return data, mode, false, nil
}

// Close releases the engine's rasterizers.
func (r *Runner) Close() error {
	return r.Engine.Close()
}
