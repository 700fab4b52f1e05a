// Package service renders stored content items and publishes the results.
//
// A [Service] ties the document store, artifact storage and the provider
// orchestrator together. It is shared by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/siete/assetforge/pkg/brand"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/provider"
	"github.com/siete/assetforge/pkg/storage"
	"github.com/siete/assetforge/pkg/store"
)

// Result describes a published artifact.
type Result struct {
	FileName     string        `json:"file_name"`
	AssetURL     string        `json:"asset_url"`
	RenderedHTML string        `json:"rendered_html"`
	Format       string        `json:"format"`
	Mode         pipeline.Mode `json:"mode"`
	Cached       bool          `json:"cached"`
	Degraded     bool          `json:"degraded,omitempty"`
}

// Preview is the generated document of an item without rasterization.
type Preview struct {
	HTML string             `json:"html"`
	Mode pipeline.Mode      `json:"mode"`
	Type content.VisualType `json:"content_type"`
}

type Service struct {
	store   store.Store
	storage storage.Storage
	orch    *provider.Orchestrator
	logger  *log.Logger
}

// New creates a Service.
func New(s store.Store, st storage.Storage, orch *provider.Orchestrator, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{store: s, storage: st, orch: orch, logger: logger}
}

// Store returns the document store.
func (s *Service) Store() store.Store { return s.store }

// Storage returns the artifact storage.
func (s *Service) Storage() storage.Storage { return s.storage }

// RenderContentItem renders itemID with its template, uploads the artifact
// to the renders bucket and records the rendered HTML on the item.
func (s *Service) RenderContentItem(ctx context.Context, itemID string) (*Result, error) {
	item, tpl, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	req, err := s.request(ctx, item, tpl)
	if err != nil {
		return nil, err
	}

	var src *store.DesignSource
	if tpl != nil {
		src = tpl.DesignSource
	}
	art, err := s.orch.Render(ctx, item.OrgID, src, req)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, item.ID, art)
}

// Preview generates the document for itemID without rasterizing it.
func (s *Service) Preview(ctx context.Context, itemID string) (*Preview, error) {
	item, tpl, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	req, err := s.request(ctx, item, tpl)
	if err != nil {
		return nil, err
	}
	html, mode, err := s.orch.Runner().Engine.GenerateHTML(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Preview{HTML: html, Mode: mode, Type: req.Type}, nil
}

// RenderHTML rasterizes an edited document for itemID, replacing the
// item's artifact and rendered HTML.
func (s *Service) RenderHTML(ctx context.Context, itemID, html string) (*Result, error) {
	item, tpl, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	art, err := s.orch.Runner().RenderFromHTML(ctx, html, visualType(item, tpl), item.ID)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, item.ID, art)
}

// Render renders an ad-hoc request with the built-in pipeline and uploads
// the artifact. Nothing is recorded in the store.
func (s *Service) Render(ctx context.Context, req pipeline.Request) (*Result, error) {
	art, err := s.orch.Render(ctx, "", nil, req)
	if err != nil {
		return nil, err
	}
	return s.upload(ctx, art)
}

func (s *Service) load(ctx context.Context, itemID string) (*store.ContentItem, *store.Template, error) {
	if err := errors.ValidateID(itemID); err != nil {
		return nil, nil, err
	}
	item, err := s.store.ContentItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	var tpl *store.Template
	if item.TemplateID != "" {
		if tpl, err = s.store.Template(ctx, item.TemplateID); err != nil {
			return nil, nil, err
		}
	}
	if t := visualType(item, tpl); !content.IsVisual(t) {
		return nil, nil, errors.New(errors.ErrCodeInvalidContentType,
			"template type %q does not support visual rendering. Supported: %s", t, supported())
	}
	return item, tpl, nil
}

func (s *Service) request(ctx context.Context, item *store.ContentItem, tpl *store.Template) (pipeline.Request, error) {
	b, err := brand.Build(ctx, s.store, item.OrgID)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("brand: %w", err)
	}
	req := pipeline.Request{
		Type:      visualType(item, tpl),
		Data:      item.ContentData,
		KeyOrder:  item.KeyOrder,
		ContentID: item.ID,
		Brand:     b,
		Logger:    s.logger,
	}
	if tpl == nil {
		return req, nil
	}

	req.LayoutOverride = tpl.VisualLayout
	req.CSSOverride = tpl.VisualCSS
	if req.Assets, err = s.store.TemplateAssets(ctx, tpl.ID); err != nil {
		return pipeline.Request{}, fmt.Errorf("template assets: %w", err)
	}
	if req.Zones, err = tpl.Zones(); err != nil {
		return pipeline.Request{}, err
	}
	return req, nil
}

func (s *Service) publish(ctx context.Context, itemID string, art *pipeline.Artifact) (*Result, error) {
	res, err := s.upload(ctx, art)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateRender(ctx, itemID, store.RenderUpdate{RenderedHTML: art.HTML, AssetURL: res.AssetURL}); err != nil {
		return nil, fmt.Errorf("save render: %w", err)
	}
	if res.Degraded {
		s.logger.Warn("rendered content item without text; browser unavailable", "id", itemID, "file", res.FileName)
	}
	s.logger.Info("rendered content item", "id", itemID, "file", res.FileName, "mode", res.Mode)
	return res, nil
}

func (s *Service) upload(ctx context.Context, art *pipeline.Artifact) (*Result, error) {
	url, err := s.storage.Upload(ctx, storage.BucketRenders, art.FileName, art.Data, art.ContentType())
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", art.FileName, err)
	}
	return &Result{
		FileName:     art.FileName,
		AssetURL:     url,
		RenderedHTML: art.HTML,
		Format:       art.Format,
		Mode:         art.Mode,
		Cached:       art.Cached,
		Degraded:     art.Degraded,
	}, nil
}

// visualType prefers the template's type over the item's.
func visualType(item *store.ContentItem, tpl *store.Template) content.VisualType {
	if tpl != nil && tpl.ContentType != "" {
		return tpl.ContentType
	}
	return item.ContentType
}

func supported() string {
	types := content.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
