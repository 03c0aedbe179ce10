package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leocov-dev/curse2nix/config"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of curse2nix",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("curse2nix " + config.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
