package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pokerist/marmaricatv-sub001/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version, commit, and build date of marmaricatv.",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			fmt.Fprintln(out, version.JSON())
			return
		}
		fmt.Fprintln(out, version.String())
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "output version information as JSON")
	rootCmd.AddCommand(versionCmd)
}
