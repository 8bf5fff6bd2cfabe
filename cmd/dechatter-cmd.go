package cmd

import (
	"github.com/guettli/dechatter/pkg/dechatter"
	"github.com/spf13/cobra"
)

func init() {
	config := dechatter.DechatterCmdConfig{}
	dechatterCmd := &cobra.Command{
		Use:     "de-chatter",
		Aliases: []string{"run"},
		Short:   "Grab the device and de-chatter it. Needs root permissions.",
		Example: `  dechatter de-chatter -t 1:83:30 -n "c:Keyboard"
  dechatter de-chatter --config /etc/dechatter.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.IndexSet = cmd.Flags().Changed("index")
			config.SkipFirstSet = cmd.Flags().Changed("skip-first")
			return dechatter.DechatterMain(cmd.Context(), config, log)
		},
		Args: cobra.NoArgs,
	}
	dechatterCmd.Flags().VarP(&config.Timeouts, "timeouts", "t", "Inclusive range of key codes to de-chatter, in format <start>:<end>:<timeout_ms> (repeatable)")
	addSelectFlags(dechatterCmd, &config.SelectCmdConfig)
	dechatterCmd.Flags().BoolVar(&config.SkipFirst, "skip-first", false, "Drop the first batch of events before grabbing the device")
	dechatterCmd.Flags().StringVarP(&config.ConfigFile, "config", "c", "", "Config file (.yaml or .toml). Flags are applied after the file")
	dechatterCmd.Flags().DurationVar(&config.NodeTimeout, "node-timeout", dechatter.DefaultNodeTimeout, "How long to wait for the device nodes of the fake keyboard")
	rootCmd.AddCommand(dechatterCmd)
}
