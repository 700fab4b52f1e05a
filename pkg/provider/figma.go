package provider

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations/figma"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/rasterize"
	"github.com/siete/assetforge/pkg/store"
	"github.com/siete/assetforge/pkg/svgtext"
)

// FigmaConfig is the org config stored under "figma_config".
type FigmaConfig struct {
	Token string `json:"token" bson:"token"`
}

// FigmaRenderer exports a Figma frame as SVG, replaces its text layers and
// rasterizes the result with the engine.
type FigmaRenderer struct {
	store  store.Store
	engine *pipeline.Engine
	cache  cache.Cache
	keyer  cache.Keyer
	client func(token string) *figma.Client
	logger *log.Logger
}

// NewFigmaRenderer creates a FigmaRenderer. Exported SVGs are kept in c
// for an hour.
func NewFigmaRenderer(s store.Store, engine *pipeline.Engine, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *FigmaRenderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &FigmaRenderer{
		store:  s,
		engine: engine,
		cache:  c,
		keyer:  keyer,
		client: func(token string) *figma.Client { return figma.NewClient(token, c) },
		logger: logger,
	}
}

// WithClientFactory replaces how API clients are built.
func (r *FigmaRenderer) WithClientFactory(fn func(token string) *figma.Client) *FigmaRenderer {
	r.client = fn
	return r
}

// Render mutates the linked frame with job's content and rasterizes it.
func (r *FigmaRenderer) Render(ctx context.Context, job Job) (*pipeline.Artifact, error) {
	var cfg FigmaConfig
	if err := r.store.OrgConfig(ctx, job.OrgID, store.ConfigFigma, &cfg); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, fallback("figma not connected for organization %s", job.OrgID)
		}
		return nil, fallbackErr("load figma config", err)
	}
	src := job.Source
	if cfg.Token == "" || src.FileKey == "" || src.FrameID == "" {
		return nil, fallback("incomplete figma design source")
	}

	svg, err := r.frameSVG(ctx, job.OrgID, cfg.Token, src.FileKey, src.FrameID)
	if err != nil {
		return nil, fallbackErr("figma svg export", err)
	}

	data := content.Normalize(job.Type, job.Data, content.WithKeyOrder(job.KeyOrder))
	layers := TextFields(data, src.FieldMap)
	out, err := svgtext.Replace(svg, pipeline.Replacements(layers, job.Brand))
	if err != nil {
		return nil, fallbackErr("figma svg", err)
	}

	spec, err := content.Lookup(job.Type)
	if err != nil {
		return nil, err
	}
	width, height := spec.Width, spec.Height
	if d := src.Dimensions; d != nil {
		if d.Width > 0 {
			width = d.Width
		}
		if d.Height > 0 {
			height = d.Height
		}
	}
	html := pipeline.WrapSVG(out, width, height)
	rj := rasterize.Job{HTML: html, Width: width, Height: height, Format: spec.Format, Scale: rasterize.DefaultScale}
	// ModeFigma never takes the static path, so a browser failure falls
	// back to the built-in engine instead of publishing a text-less export.
	file, _, err := r.engine.Rasterize(ctx, job.Type, rj, pipeline.ModeFigma)
	if err != nil {
		return nil, fallbackErr("figma rasterize", err)
	}

	art, err := r.engine.Write(job.ContentID, job.Type, spec.Format, pipeline.ModeFigma, html, file)
	if err != nil {
		return nil, err
	}
	r.logger.Info("figma render complete", "file", art.FileName, "format", spec.Format)
	return art, nil
}

// frameSVG exports a frame as SVG. Exports are cached per organization since
// access to a file depends on the org's token.
func (r *FigmaRenderer) frameSVG(ctx context.Context, orgID, token, fileKey, nodeID string) (string, error) {
	key := cache.NewScopedKeyer(r.keyer, "org:"+orgID+":").DesignKey(Figma, fileKey, nodeID)
	data, hit, err := cache.GetOrFill(ctx, r.cache, key, cache.TTLDesign, func(ctx context.Context) ([]byte, error) {
		client := r.client(token)
		url, err := client.ExportSVG(ctx, fileKey, nodeID)
		if err != nil {
			return nil, err
		}
		return client.Download(ctx, url)
	})
	if err != nil {
		return "", err
	}
	r.logger.Debug("figma frame svg", "file", fileKey, "node", nodeID, "cached", hit)
	return string(data), nil
}
