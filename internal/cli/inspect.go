package cli

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/overlay"
	"github.com/siete/assetforge/pkg/svgtext"
)

// inspectCommand creates the inspect command for template authoring.
func (c *CLI) inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect template files",
	}

	cmd.AddCommand(c.inspectSVGCommand())
	cmd.AddCommand(c.inspectZonesCommand())

	return cmd
}

func (c *CLI) inspectSVGCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "svg <file>",
		Short: "List the text elements of an SVG template",
		Long: `List the text elements of an SVG template.

A text element receives a content field when its id contains the field name
(case-insensitive) or its data-field attribute equals it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readFile(args[0])
			if err != nil {
				return err
			}
			nodes, err := svgtext.TextNodes(string(raw))
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				printInfo("No text elements found")
				return nil
			}
			rows := make([][]string, len(nodes))
			for i, n := range nodes {
				rows[i] = []string{firstNonEmpty(n.ID, "-"), firstNonEmpty(n.DataField, "-"), strconv.Itoa(n.Lines), truncate(n.Text, 40)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "data-field", "Lines", "Text"}, rows))
			return nil
		},
	}
}

func (c *CLI) inspectZonesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "zones <file>",
		Short: "Show an overlay zone manifest with defaults applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readFile(args[0])
			if err != nil {
				return err
			}
			zones, err := overlay.ParseYAML(bytes.NewReader(raw))
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", args[0])
			}
			if len(zones) == 0 {
				printInfo("No zones defined")
				return nil
			}
			var rows [][]string
			for _, name := range zones.Names() {
				z := zones[name]
				rows = append(rows, []string{
					name,
					fmt.Sprintf("%g,%g", z.X, z.Y),
					fmt.Sprintf("%gx%g", z.Width, z.Height),
					fmt.Sprintf("%gpx/%d", z.FontSize, z.FontWeight),
					z.Color,
					z.Align,
					firstNonEmpty(z.BgFill, "-"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Zone", "Pos", "Size", "Font", "Color", "Align", "Background"}, rows))
			return nil
		},
	}
}
