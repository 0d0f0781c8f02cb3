// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// sha1ver is set at build time with -ldflags "-X .../cmd.sha1ver=<sha>".
var sha1ver string

func init() {
	if sha1ver == "" {
		sha1ver = "develop"
	}
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the binary",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), sha1ver)
	},
}
