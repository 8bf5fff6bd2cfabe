package cmd

import (
	"os"

	"github.com/guettli/dechatter/pkg/dechatter"
	"github.com/spf13/cobra"
)

func init() {
	config := dechatter.SelectCmdConfig{}
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Print the events of one device in csv format. Use 'simulate' to replay them. Needs root permissions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dechatter.RecordMain(cmd.Context(), os.Stdout, config, log)
		},
		Args: cobra.NoArgs,
	}
	addSelectFlags(recordCmd, &config)
	rootCmd.AddCommand(recordCmd)
}
