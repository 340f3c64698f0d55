package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"upscaled/internal/engine/resample"
	"upscaled/internal/manager"
	"upscaled/internal/registry"
	"upscaled/pkg/types"
)

func newModelsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := registry.Default().List()
			if asJSON {
				out := make([]types.Model, len(models))
				for i, md := range models {
					out[i] = manager.ToAPIModel(md)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			cache, err := newCache(a.cfg, a.log)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSCALE\tCACHED\tNAME")
			for _, md := range models {
				cached := "no"
				if cache.Has(md.ID, resample.ManifestFile) {
					cached = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", md.ID, md.Scale, cached, md.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
