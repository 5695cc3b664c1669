package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCatalogCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the knowledge points the engine would score against",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(v)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORIES")
			for _, kp := range catalog.Points() {
				groups := make([]string, 0, len(kp.Keywords))
				for _, g := range kp.Keywords {
					groups = append(groups, g.Category)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", kp.ID, kp.Name, strings.Join(groups, ","))
			}
			return w.Flush()
		},
	}
}
