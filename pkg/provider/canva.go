package provider

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/siete/assetforge/pkg/cache"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations"
	"github.com/siete/assetforge/pkg/integrations/canva"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/store"
)

// CanvaRenderer autofills a Canva brand template and exports it as PNG.
type CanvaRenderer struct {
	store  store.Store
	oauth  *canva.OAuthClient
	engine *pipeline.Engine
	client func(token string) *canva.Client
	logger *log.Logger
}

// NewCanvaRenderer creates a CanvaRenderer. Artifacts are written through
// engine; credentials are read from and refreshed into s.
func NewCanvaRenderer(s store.Store, oauth *canva.OAuthClient, engine *pipeline.Engine, c cache.Cache, logger *log.Logger) *CanvaRenderer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CanvaRenderer{
		store:  s,
		oauth:  oauth,
		engine: engine,
		client: func(token string) *canva.Client { return canva.NewClient(token, c) },
		logger: logger,
	}
}

// WithClientFactory replaces how API clients are built.
func (r *CanvaRenderer) WithClientFactory(fn func(token string) *canva.Client) *CanvaRenderer {
	r.client = fn
	return r
}

// Render runs autofill → export → download and writes <id>.png.
func (r *CanvaRenderer) Render(ctx context.Context, job Job) (*pipeline.Artifact, error) {
	var creds canva.Credentials
	if err := r.store.OrgConfig(ctx, job.OrgID, store.ConfigCanva, &creds); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, fallback("canva not connected for organization %s", job.OrgID)
		}
		return nil, fallbackErr("load canva config", err)
	}
	if job.Source.TemplateID == "" {
		return nil, fallback("design source has no canva template_id")
	}

	token, updated, err := r.oauth.ValidToken(ctx, creds)
	if err != nil {
		return nil, fallbackErr("canva token", err)
	}
	if updated != nil {
		if err := r.store.SetOrgConfig(ctx, job.OrgID, store.ConfigCanva, updated); err != nil {
			r.logger.Warn("could not persist refreshed canva token", "org", job.OrgID, "error", err)
		}
	}

	data := content.Normalize(job.Type, job.Data, content.WithKeyOrder(job.KeyOrder))
	autofill := make(map[string]canva.FieldValue)
	for name, text := range TextFields(data, job.Source.FieldMap) {
		autofill[name] = canva.Text(text)
	}
	if name, ok := job.Source.FieldMap["brand_name"]; ok && job.Brand.Name != "" {
		autofill[name] = canva.Text(job.Brand.Name)
	}
	if name, ok := job.Source.FieldMap["brand_website"]; ok && job.Brand.Website != "" {
		autofill[name] = canva.Text(job.Brand.Website)
	}
	if len(autofill) == 0 {
		return nil, fallback("no autofill data for canva template %s", job.Source.TemplateID)
	}

	client := r.client(token)
	created, err := client.CreateAutofill(ctx, job.Source.TemplateID, autofill)
	if err != nil {
		return nil, fallbackErr("canva autofill", err)
	}
	done, err := client.WaitAutofill(ctx, created.ID)
	if err != nil {
		return nil, fallbackErr("canva autofill", err)
	}
	designID := done.Result.Design.ID
	if designID == "" {
		return nil, fallback("canva autofill %s finished without a design", created.ID)
	}
	r.logger.Info("canva autofill complete", "design", designID)

	export, err := client.CreateExport(ctx, designID, content.FormatPNG)
	if err != nil {
		return nil, fallbackErr("canva export", err)
	}
	urls, err := client.WaitExport(ctx, export.ID)
	if err != nil {
		return nil, fallbackErr("canva export", err)
	}
	if len(urls) == 0 {
		return nil, fallback("canva export %s has no download urls", export.ID)
	}
	file, err := client.Download(ctx, urls[0], integrations.MaxDownloadSize)
	if err != nil {
		return nil, fallbackErr("canva download", err)
	}

	art, err := r.engine.Write(job.ContentID, job.Type, content.FormatPNG, pipeline.ModeCanva, "", file)
	if err != nil {
		return nil, err
	}
	r.logger.Info("canva render complete", "file", art.FileName, "bytes", len(file))
	return art, nil
}
