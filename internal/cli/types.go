package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siete/assetforge/pkg/content"
)

// typesCommand lists the visual content types, or the fields of one type.
func (c *CLI) typesCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "types [type]",
		Short:     "List visual content types and their fields",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: typeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				var rows [][]string
				for _, t := range content.Types() {
					spec, _ := content.Lookup(t)
					rows = append(rows, []string{
						string(t),
						strings.ToUpper(spec.Format),
						fmt.Sprintf("%dx%d", spec.Width, spec.Height),
						spec.File,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Type", "Format", "Size", "Default layout"}, rows))
				return nil
			}

			t := content.VisualType(args[0])
			if _, err := content.Lookup(t); err != nil {
				return err
			}
			schema, _ := content.SchemaFor(t)
			var rows [][]string
			for _, f := range schema.Fields {
				rows = append(rows, []string{f.Name, strings.Join(f.Aliases, ", ")})
			}
			if schema.Array != "" {
				rows = append(rows, []string{schema.Array + " []", ""})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Aliases"}, rows))
			return nil
		},
	}
}

func typeNames() []string {
	types := content.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
