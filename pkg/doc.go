// Package pkg provides the core libraries for Assetforge visual asset
// rendering.
//
// # Overview
//
// Assetforge turns generated marketing content (carousels, memes, case
// studies, team cards, infographics) into branded PNG and PDF assets. The
// pkg directory is organized into four main areas:
//
//  1. Content: [content] types and field normalization, [brand] assembly
//  2. Generation: [htmltpl], [overlay], [svgtext] and [assets] produce HTML
//  3. Rendering: [rasterize] and [pipeline] turn HTML into files
//  4. Serving: [store], [storage], [service], [server] and [provider]
//
// # Architecture
//
// The typical data flow through Assetforge:
//
//	Content item (store)
//	         ↓
//	    [content] normalize fields, rebuild slides
//	         ↓
//	    [pipeline] pick a mode: SVG template, overlay, custom or default HTML
//	         ↓
//	    [rasterize] headless Chrome → PNG or multi-page PDF
//	         ↓
//	    [storage] upload; item updated with rendered_html and asset_url
//
// Templates linked to a Canva or Figma design go through [provider] first
// and fall back to the pipeline when the design tool cannot render.
//
// # Quick Start
//
//	templates, _ := htmltpl.New()
//	eng, _ := pipeline.NewEngine(pipeline.Options{
//	    Templates:  templates,
//	    Rasterizer: rasterize.NewBrowser(rasterize.BrowserOptions{Headless: true}, nil),
//	    RendersDir: "/tmp/assetforge/renders",
//	})
//	runner := pipeline.NewRunner(eng, cache.NewNullCache(), nil, nil)
//	art, _ := runner.Render(ctx, pipeline.Request{
//	    Type: content.Meme,
//	    Data: content.Data{"top_text": "Deploy on Friday"},
//	})
//	fmt.Println(art.Path)
//
// # Infrastructure
//
// [cache] - Render, design and HTTP caches over files or Redis.
//
// [store] - Organizations, templates and content items in MongoDB, or in
// memory seeded from a YAML fixture.
//
// [storage] - Buckets on local disk or GridFS.
//
// [session] - OAuth state tokens in memory or Redis.
//
// [integrations] - Canva and Figma API clients with retry and caching.
//
// [config] - TOML configuration with environment overrides.
//
// [content]: https://pkg.go.dev/github.com/siete/assetforge/pkg/content
// [brand]: https://pkg.go.dev/github.com/siete/assetforge/pkg/brand
// [htmltpl]: https://pkg.go.dev/github.com/siete/assetforge/pkg/htmltpl
// [overlay]: https://pkg.go.dev/github.com/siete/assetforge/pkg/overlay
// [svgtext]: https://pkg.go.dev/github.com/siete/assetforge/pkg/svgtext
// [assets]: https://pkg.go.dev/github.com/siete/assetforge/pkg/assets
// [rasterize]: https://pkg.go.dev/github.com/siete/assetforge/pkg/rasterize
// [pipeline]: https://pkg.go.dev/github.com/siete/assetforge/pkg/pipeline
// [store]: https://pkg.go.dev/github.com/siete/assetforge/pkg/store
// [storage]: https://pkg.go.dev/github.com/siete/assetforge/pkg/storage
// [service]: https://pkg.go.dev/github.com/siete/assetforge/pkg/service
// [server]: https://pkg.go.dev/github.com/siete/assetforge/pkg/server
// [provider]: https://pkg.go.dev/github.com/siete/assetforge/pkg/provider
// [cache]: https://pkg.go.dev/github.com/siete/assetforge/pkg/cache
// [session]: https://pkg.go.dev/github.com/siete/assetforge/pkg/session
// [integrations]: https://pkg.go.dev/github.com/siete/assetforge/pkg/integrations
// [config]: https://pkg.go.dev/github.com/siete/assetforge/pkg/config
package pkg
