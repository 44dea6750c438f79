package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/arcampus/arcampus/internal/catalog"
	"github.com/arcampus/arcampus/internal/config"

	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the landmark catalog and the reference image set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				if err := config.Load(configDir); err != nil {
					return err
				}
				path = config.GetString("catalog.path")
			}

			c, err := catalog.Load(path)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tDETAIL")
			for _, e := range c.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Title, truncate(e.Detail, 60))
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "IMAGE\tWIDTH (m)\tHEIGHT (m)\tLANDMARK")
			for _, img := range c.ReferenceImages() {
				landmark := "-"
				if e, ok := c.Entry(img.ID); ok {
					landmark = e.Title
				}
				fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%s\n", img.ID, img.PhysicalSize.Width, img.PhysicalSize.Height, landmark)
			}
			return w.Flush()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&path, "file", "", "catalog file (defaults to catalog.path, then the built-in catalog)")

	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
