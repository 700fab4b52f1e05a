package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/siete/assetforge/pkg/pipeline"
)

type previewOptions struct {
	requestOptions
	output string
	open   bool
}

// previewCommand creates the preview command, which generates the HTML
// document of a render without rasterizing it.
func (c *CLI) previewCommand() *cobra.Command {
	opts := previewOptions{}

	cmd := &cobra.Command{
		Use:   "preview [content-item-id]",
		Short: "Generate the HTML of a render without rasterizing it",
		Example: `  assetforge preview 5f3c9a --open
  assetforge preview -t infografia --data stats.json -o stats.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var req pipeline.Request
			if len(args) == 0 {
				var err error
				if req, err = opts.request(); err != nil {
					return err
				}
			}
			a, err := c.openApp(ctx, appOptions{needStore: len(args) == 1})
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				html string
				mode pipeline.Mode
			)
			if len(args) == 1 {
				p, err := a.svc.Preview(ctx, args[0])
				if err != nil {
					return err
				}
				html, mode = p.HTML, p.Mode
			} else if html, mode, err = a.engine.GenerateHTML(ctx, req); err != nil {
				return err
			}
			c.Logger.Debug("generated preview", "mode", mode, "bytes", len(html))

			out := opts.output
			if out == "" && opts.open {
				out = filepath.Join(a.cfg.Paths.Tmp, "preview.html")
			}
			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), html)
				return nil
			}
			if err := writeOutput(out, []byte(html)); err != nil {
				return err
			}
			printSuccess("Generated %s preview", mode)
			printFile(out)

			if opts.open {
				abs, err := filepath.Abs(out)
				if err != nil {
					return err
				}
				if err := openBrowser("file://" + filepath.ToSlash(abs)); err != nil {
					printWarning("Could not open browser: %v", err)
				}
			}
			return nil
		},
	}

	addRequestFlags(cmd, &opts.requestOptions)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the HTML to this path instead of stdout")
	cmd.Flags().BoolVar(&opts.open, "open", false, "open the preview in the browser")

	return cmd
}
