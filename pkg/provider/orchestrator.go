package provider

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/siete/assetforge/pkg/observability"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/store"
)

// Orchestrator picks between design-tool renderers and the built-in
// pipeline.
type Orchestrator struct {
	runner    *pipeline.Runner
	renderers map[string]Renderer
	logger    *log.Logger
}

// NewOrchestrator creates an Orchestrator over runner. renderers maps
// provider names to renderers; providers without an entry always fall back.
func NewOrchestrator(runner *pipeline.Runner, renderers map[string]Renderer, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if renderers == nil {
		renderers = map[string]Renderer{}
	}
	return &Orchestrator{runner: runner, renderers: renderers, logger: logger}
}

// Runner returns the built-in pipeline runner.
func (o *Orchestrator) Runner() *pipeline.Runner { return o.runner }

// Render renders req through src's provider when src is set, and through
// the built-in pipeline otherwise or when the provider fails. The
// artifact's Mode records which path produced it.
func (o *Orchestrator) Render(ctx context.Context, orgID string, src *store.DesignSource, req pipeline.Request) (*pipeline.Artifact, error) {
	if err := req.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if src != nil && src.Provider != "" {
		art, err := o.tryProvider(ctx, orgID, *src, req)
		if err == nil {
			return art, nil
		}
		observability.Pipeline().OnProviderFallback(ctx, src.Provider, string(req.Type), err)
		o.logger.Warn("design provider failed, using built-in engine",
			"provider", src.Provider,
			"type", req.Type,
			"error", err)
	}
	return o.runner.Render(ctx, req)
}

func (o *Orchestrator) tryProvider(ctx context.Context, orgID string, src store.DesignSource, req pipeline.Request) (*pipeline.Artifact, error) {
	r, ok := o.renderers[src.Provider]
	if !ok {
		return nil, fallback("no renderer for provider %q", src.Provider)
	}
	return r.Render(ctx, Job{OrgID: orgID, Source: src, Request: req})
}
