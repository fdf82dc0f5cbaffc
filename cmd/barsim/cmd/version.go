package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the barsim CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "barsim version %s\n", version)
		fmt.Fprintln(out, "A bar-by-bar backtesting simulator for one instrument")
		fmt.Fprintln(out, "https://github.com/rustyeddy/barsim")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
