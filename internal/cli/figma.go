package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations/figma"
	"github.com/siete/assetforge/pkg/provider"
	"github.com/siete/assetforge/pkg/store"
)

// figmaCommand creates the figma command with subcommands.
func (c *CLI) figmaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "figma",
		Short: "Figma integration commands",
		Long: `Browse Figma files to link frames to templates.

The token comes from --token, the organization's figma_config (--org), or
figma.token in the config file.`,
	}

	cmd.AddCommand(c.figmaWhoamiCommand())
	cmd.AddCommand(c.figmaFramesCommand())
	cmd.AddCommand(c.figmaTextsCommand())

	return cmd
}

func (c *CLI) figmaWhoamiCommand() *cobra.Command {
	opts := canvaOptions{}
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the owner of the Figma token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, done, err := c.figmaClient(ctx, opts)
			if err != nil {
				return err
			}
			defer done()

			user, err := client.Me(ctx)
			if err != nil {
				return err
			}
			printSuccess("Figma Token")
			printKeyValue("Handle", user.Handle)
			if user.Email != "" {
				printKeyValue("Email", user.Email)
			}
			return nil
		},
	}
	addFigmaFlags(cmd, &opts)
	return cmd
}

// figmaFramesCommand lists the exportable frames of a file. With -i the user
// picks a frame and its text layers are shown.
func (c *CLI) figmaFramesCommand() *cobra.Command {
	opts := canvaOptions{}
	var refresh, interactive bool
	cmd := &cobra.Command{
		Use:   "frames <file-key>",
		Short: "List the frames of a Figma file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, done, err := c.figmaClient(ctx, opts)
			if err != nil {
				return err
			}
			defer done()

			spinner := newSpinnerWithContext(ctx, "Fetching file...")
			spinner.Start()
			info, err := client.FileInfo(ctx, args[0], refresh)
			spinner.Stop()
			if err != nil {
				return err
			}

			printSuccess("%s", info.Name)
			printDetail("Modified %s", formatRelativeTime(info.LastModified))

			var frames []figma.Frame
			var rows [][]string
			for _, p := range info.Pages {
				for _, f := range p.Frames {
					frames = append(frames, f)
					rows = append(rows, []string{p.Name, f.Name, f.ID, strings.ToLower(f.Type)})
				}
			}
			if len(rows) == 0 {
				printInfo("No frames found")
				return nil
			}
			headers := []string{"Page", "Frame", "Node", "Type"}
			if !interactive {
				printTable(headers, rows)
				return nil
			}

			idx, err := pick(NewPickerModel("Select Frame", headers, rows))
			if err != nil || idx < 0 {
				return err
			}
			return printTextNodes(ctx, client, args[0], frames[idx].ID)
		},
	}
	addFigmaFlags(cmd, &opts)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached file summary")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick a frame and show its text layers")
	return cmd
}

func (c *CLI) figmaTextsCommand() *cobra.Command {
	opts := canvaOptions{}
	cmd := &cobra.Command{
		Use:   "texts <file-key> <node-id>",
		Short: "Show the text layers of a frame",
		Long: `Show the text layers of a frame. Layer names are what a template's
field_mapping maps content fields to.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, done, err := c.figmaClient(ctx, opts)
			if err != nil {
				return err
			}
			defer done()
			return printTextNodes(ctx, client, args[0], args[1])
		},
	}
	addFigmaFlags(cmd, &opts)
	return cmd
}

func addFigmaFlags(cmd *cobra.Command, o *canvaOptions) {
	cmd.Flags().StringVar(&o.orgID, "org", "", "organization whose figma_config token to use")
	cmd.Flags().StringVar(&o.token, "token", "", "Figma personal access token")
}

func printTextNodes(ctx context.Context, client *figma.Client, fileKey, nodeID string) error {
	nodes, err := client.FrameTextNodes(ctx, fileKey, nodeID)
	if err != nil {
		return err
	}
	printSuccess("Text layers of %s", nodeID)
	if len(nodes) == 0 {
		printDetail("Frame has no text layers")
		return nil
	}
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{n.Name, n.ID, truncate(n.Characters, 40)}
	}
	printTable([]string{"Layer", "Node", "Text"}, rows)
	return nil
}

// figmaClient resolves the token from --token, the org config or the
// config file, in that order.
func (c *CLI) figmaClient(ctx context.Context, opts canvaOptions) (*figma.Client, func(), error) {
	a, err := c.openApp(ctx, appOptions{needStore: opts.token == "" && opts.orgID != ""})
	if err != nil {
		return nil, nil, err
	}
	token := opts.token
	if token == "" && opts.orgID != "" {
		var fc provider.FigmaConfig
		if err := a.store.OrgConfig(ctx, opts.orgID, store.ConfigFigma, &fc); err != nil && !errors.Is(err, errors.ErrCodeNotFound) {
			a.Close()
			return nil, nil, err
		}
		token = fc.Token
	}
	if token == "" {
		token = a.cfg.Figma.Token
	}
	if token == "" {
		a.Close()
		return nil, nil, errors.New(errors.ErrCodeUnauthorized, "no Figma token: pass --token, --org or set FIGMA_TOKEN")
	}
	return figma.NewClient(token, a.cache), a.Close, nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
