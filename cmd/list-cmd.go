package cmd

import (
	"os"

	"github.com/guettli/dechatter/pkg/dechatter"
	"github.com/spf13/cobra"
)

func init() {
	opts := dechatter.DisplayOpts{}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all input devices, in the order used by --index",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Color = dechatter.UseColor(os.Stdout)
			return dechatter.ListMain(os.Stdout, opts, log)
		},
		Args: cobra.NoArgs,
	}
	listCmd.Flags().BoolVarP(&opts.Path, "path", "p", true, "Show path to input")
	listCmd.Flags().BoolVarP(&opts.PhysicalPath, "physical-path", "y", true, "Show physical path")
	listCmd.Flags().BoolVarP(&opts.Name, "name", "n", false, "Show name")
	listCmd.Flags().BoolVarP(&opts.ID, "id", "i", false, "Show bus, vendor, product, version")
	listCmd.Flags().BoolVarP(&opts.Keys, "keys", "k", false, "Show all supported keys")
	listCmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Show everything")
	rootCmd.AddCommand(listCmd)
}
