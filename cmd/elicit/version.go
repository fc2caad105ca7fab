package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/elicit"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of elicit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("elicit version %s\n", strings.TrimSpace(elicit.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
