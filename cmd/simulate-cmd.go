package cmd

import (
	"os"

	"github.com/guettli/dechatter/pkg/dechatter"
	"github.com/spf13/cobra"
)

func init() {
	config := dechatter.SimulateCmdConfig{}
	simulateCmd := &cobra.Command{
		Use:   "simulate [flags] events.csv",
		Short: "Run recorded events through the filter and print the events which would get forwarded",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.CsvFile = args[0]
			return dechatter.SimulateMain(os.Stdout, config, log)
		},
		Args: cobra.ExactArgs(1),
	}
	simulateCmd.Flags().VarP(&config.Timeouts, "timeouts", "t", "Inclusive range of key codes to de-chatter, in format <start>:<end>:<timeout_ms> (repeatable)")
	rootCmd.AddCommand(simulateCmd)
}
