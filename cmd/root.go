package cmd

import (
	"fmt"
	"os"

	"github.com/guettli/dechatter/pkg/dechatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "dechatter",
	Short: "dechatter grabs a Linux evdev keyboard and drops the events of chattering keys, before they reach other programs.",
	Long: `dechatter filters chattering keys of worn keyboards. https://github.com/guettli/dechatter

Logging is configured with the environment variables LOG_LEVEL (trace, debug, info, warn, error)
and LOG_STYLE (auto, always, never).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := dechatter.NewLoggerFromEnv(os.Stderr)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// addSelectFlags adds the flags to pick one device.
func addSelectFlags(cmd *cobra.Command, config *dechatter.SelectCmdConfig) {
	cmd.Flags().VarP(&config.Filters.Name, "name", "n", "Filter devices by name (repeatable). Prefix s: starts with, e: ends with, c: contains, no prefix: equals")
	cmd.Flags().VarP(&config.Filters.Path, "path", "p", "Filter devices by path (repeatable)")
	cmd.Flags().VarP(&config.Filters.PhysicalPath, "physical-path", "y", "Filter devices by physical path (repeatable)")
	cmd.Flags().IntVarP(&config.Index, "index", "i", 0, "Take the device with this index after applying all filters")
}
