package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/siete/assetforge/pkg/assets"
	"github.com/siete/assetforge/pkg/brand"
	"github.com/siete/assetforge/pkg/content"
	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/overlay"
	"github.com/siete/assetforge/pkg/pipeline"
	"github.com/siete/assetforge/pkg/storage"
)

// requestOptions describes a render request assembled from local files.
type requestOptions struct {
	contentType string
	dataFile    string
	layoutFile  string
	cssFile     string
	assetsFile  string
	zonesFile   string
	contentID   string
	brand       brand.Brand
}

// renderOptions holds all configuration for the render command.
type renderOptions struct {
	requestOptions
	output  string
	noCache bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render [content-item-id]",
		Short: "Render a content item or a local content file to PNG/PDF",
		Long: `Render a stored content item, or content read from a JSON file.

With an item id the item is loaded from the store, rendered with its
template (or linked Canva/Figma design), uploaded to the renders bucket and
written back to the item. Without one, --type and --data describe the
content and the artifact is only written to the renders directory.`,
		Example: `  assetforge render 5f3c9a
  assetforge render -t meme --data meme.json -o meme.png
  assetforge render -t carousel --data slides.json --layout carousel.html --brand-name Acme`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return c.runRenderItem(cmd.Context(), args[0], opts)
			}
			return c.runRenderFile(cmd.Context(), opts)
		},
	}

	addRequestFlags(cmd, &opts.requestOptions)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "copy the artifact to this path")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func addRequestFlags(cmd *cobra.Command, o *requestOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.contentType, "type", "t", "", "visual content type (see 'assetforge types')")
	f.StringVarP(&o.dataFile, "data", "d", "", "content data JSON file (- for stdin)")
	f.StringVar(&o.layoutFile, "layout", "", "custom HTML layout file")
	f.StringVar(&o.cssFile, "css", "", "custom CSS file")
	f.StringVar(&o.assetsFile, "assets", "", "YAML list of template assets")
	f.StringVar(&o.zonesFile, "zones", "", "YAML overlay zone manifest")
	f.StringVar(&o.contentID, "id", "", "output file id (random when empty)")
	f.StringVar(&o.brand.Name, "brand-name", "", "brand name")
	f.StringVar(&o.brand.Website, "brand-website", "", "brand website")
	f.StringVar(&o.brand.LogoURL, "brand-logo", "", "brand logo URL")
	f.StringVar(&o.brand.AccentColor, "accent", "", "brand accent color (default "+brand.DefaultAccentColor+")")
}

func (c *CLI) runRenderItem(ctx context.Context, id string, opts renderOptions) error {
	a, err := c.openApp(ctx, appOptions{noCache: opts.noCache, needStore: true})
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering "+id+"...")
	spinner.Start()
	prog := newProgress(loggerFromContext(ctx))
	res, err := a.svc.RenderContentItem(ctx, id)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done("Rendered " + id)

	printSuccess("Rendered %s", res.FileName)
	printKeyValue("URL", res.AssetURL)
	printArtifactStats(res.Format, string(res.Mode), res.Cached)

	if opts.output != "" {
		obj, err := a.storage.Open(ctx, storage.BucketRenders, res.FileName)
		if err != nil {
			return err
		}
		defer obj.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(obj); err != nil {
			return fmt.Errorf("read artifact: %w", err)
		}
		if err := writeOutput(opts.output, buf.Bytes()); err != nil {
			return err
		}
		printFile(opts.output)
	}
	return nil
}

func (c *CLI) runRenderFile(ctx context.Context, opts renderOptions) error {
	req, err := opts.request()
	if err != nil {
		return err
	}
	a, err := c.openApp(ctx, appOptions{noCache: opts.noCache})
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering "+string(req.Type)+"...")
	spinner.Start()
	prog := newProgress(loggerFromContext(ctx))
	art, err := a.runner.Render(ctx, req)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done("Rendered " + art.FileName)

	printSuccess("Rendered %s", art.FileName)
	printFile(art.Path)
	printArtifactStats(art.Format, string(art.Mode), art.Cached)

	if opts.output != "" {
		if err := writeOutput(opts.output, art.Data); err != nil {
			return err
		}
		printFile(opts.output)
	}
	return nil
}

// request builds a pipeline request from the files named by o.
func (o requestOptions) request() (pipeline.Request, error) {
	if o.contentType == "" || o.dataFile == "" {
		return pipeline.Request{}, errors.New(errors.ErrCodeInvalidInput,
			"either a content item id or --type and --data are required")
	}
	raw, err := readFile(o.dataFile)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("read data: %w", err)
	}
	data, order, err := content.Decode(bytes.NewReader(raw))
	if err != nil {
		return pipeline.Request{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", o.dataFile)
	}

	req := pipeline.Request{
		Type:      content.VisualType(o.contentType),
		Data:      data,
		KeyOrder:  order,
		ContentID: o.contentID,
		Brand:     o.brand,
	}
	if o.layoutFile != "" {
		b, err := os.ReadFile(o.layoutFile)
		if err != nil {
			return req, fmt.Errorf("read layout: %w", err)
		}
		req.LayoutOverride = string(b)
	}
	if o.cssFile != "" {
		b, err := os.ReadFile(o.cssFile)
		if err != nil {
			return req, fmt.Errorf("read css: %w", err)
		}
		req.CSSOverride = string(b)
	}
	if o.assetsFile != "" {
		b, err := os.ReadFile(o.assetsFile)
		if err != nil {
			return req, fmt.Errorf("read assets: %w", err)
		}
		var list []assets.Asset
		if err := yaml.Unmarshal(b, &list); err != nil {
			return req, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", o.assetsFile)
		}
		req.Assets = list
	}
	if o.zonesFile != "" {
		f, err := os.Open(o.zonesFile)
		if err != nil {
			return req, fmt.Errorf("read zones: %w", err)
		}
		defer f.Close()
		if req.Zones, err = overlay.ParseYAML(f); err != nil {
			return req, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", o.zonesFile)
		}
	}
	return req, nil
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
