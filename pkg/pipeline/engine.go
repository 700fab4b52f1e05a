package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/microcosm-cc/bluemonday"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/htmltpl"
	"github.com/siete/assetforge/pkg/observability"
	"github.com/siete/assetforge/pkg/overlay"
	"github.com/siete/assetforge/pkg/rasterize"
)

// Options configures an Engine. Zero fields get defaults.
type Options struct {
	Templates  *htmltpl.Engine
	Loader     *assets.Loader
	Rasterizer rasterize.Rasterizer

	// Fallback draws single-page SVG documents when Rasterizer fails.
	// Defaults to rasterize.Static.
	Fallback rasterize.Rasterizer

	// RendersDir receives one <id>.<format> file per artifact.
	RendersDir string
	Logger     *log.Logger

	validated bool
}

// ValidateAndSetDefaults fills defaults. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Templates == nil {
		t, err := htmltpl.New(htmltpl.WithLogger(o.Logger))
		if err != nil {
			return err
		}
		o.Templates = t
	}
	if o.Loader == nil {
		o.Loader = assets.NewLoader(nil)
	}
	if o.Rasterizer == nil {
		o.Rasterizer = rasterize.NewBrowser(rasterize.DefaultBrowserOptions(), o.Logger)
	}
	if o.Fallback == nil {
		o.Fallback = rasterize.Static{}
	}
	if o.RendersDir == "" {
		o.RendersDir = filepath.Join(os.TempDir(), "assetforge", "renders")
	}
	o.validated = true
	return nil
}

// Engine generates HTML for content and rasterizes it. It is safe for
// concurrent use.
type Engine struct {
	templates  *htmltpl.Engine
	loader     *assets.Loader
	raster     rasterize.Rasterizer
	fallback   rasterize.Rasterizer
	sanitizer  *bluemonday.Policy
	rendersDir string
	logger     *log.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Engine{
		templates:  opts.Templates,
		loader:     opts.Loader,
		raster:     opts.Rasterizer,
		fallback:   opts.Fallback,
		sanitizer:  NewSanitizer(),
		rendersDir: opts.RendersDir,
		logger:     opts.Logger,
	}, nil
}

// Templates returns the layout engine.
func (e *Engine) Templates() *htmltpl.Engine { return e.templates }

// Rasterizer returns the primary rasterizer.
func (e *Engine) Rasterizer() rasterize.Rasterizer { return e.raster }

// RendersDir returns the directory artifacts are written to.
func (e *Engine) RendersDir() string { return e.rendersDir }

// GenerateHTML builds the document for req and reports the mode that
// produced it.
func (e *Engine) GenerateHTML(ctx context.Context, req Request) (string, Mode, error) {
	if err := req.ValidateAndSetDefaults(); err != nil {
		return "", "", err
	}
	hooks := observability.Pipeline()
	hooks.OnGenerateStart(ctx, string(req.Type))
	start := time.Now()

	html, mode, err := e.generate(ctx, req)
	hooks.OnGenerateComplete(ctx, string(req.Type), string(mode), time.Since(start), err)
	if err != nil {
		return "", "", err
	}
	logger := req.Logger
	if logger == nil {
		logger = e.logger
	}
	logger.Debug("generated html", "type", req.Type, "mode", mode, "bytes", len(html))
	return html, mode, nil
}

func (e *Engine) generate(ctx context.Context, req Request) (string, Mode, error) {
	spec, err := content.Lookup(req.Type)
	if err != nil {
		return "", "", err
	}
	data := content.Normalize(req.Type, req.Data, content.WithKeyOrder(req.KeyOrder))
	if err := content.Validate(req.Type, data); err != nil {
		return "", "", err
	}

	list := assets.Renderable(req.Assets)
	if svgs := assets.SVGAssets(list, req.Type); len(svgs) > 0 {
		html, err := e.generateSVG(ctx, req.Type, data, svgs, req.Brand, spec)
		return html, ModeSVG, err
	}
	if designs := assets.DesignAssets(list, req.Type); len(designs) > 0 && len(req.Zones) > 0 {
		return overlay.Compose(req.Type, data, designs, req.Zones, spec), ModeOverlay, nil
	}

	vars := htmltpl.Vars{
		Data:        data,
		CSSOverride: req.CSSOverride,
		Assets:      assets.ByType(list),
		Brand:       req.Brand.Map(),
	}
	if req.LayoutOverride != "" {
		html, err := e.templates.RenderString(req.LayoutOverride, vars)
		return html, ModeCustomHTML, err
	}
	html, err := e.templates.RenderFile(spec.File, vars)
	return html, ModeDefaultHTML, err
}

// Close releases the rasterizers.
func (e *Engine) Close() error {
	err := e.raster.Close()
	if ferr := e.fallback.Close(); err == nil {
		err = ferr
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrowser, err, "close rasterizer")
	}
	return nil
}
