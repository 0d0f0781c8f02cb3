// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
)

var rootCmd = &cobra.Command{
	Use:   "k8slogviewer",
	Short: "Tail and search Kubernetes pod logs",
	Long: `Tail and search Kubernetes pod logs from the terminal.

Logs are fetched with kubectl through your shell, highlighted as they stream
and searchable while they arrive.`,
	PersistentPreRunE: onCommandStart,
	SilenceUsage:      true,
	Run: func(cmd *cobra.Command, args []string) {
		// Check if config exists before showing generic help
		if path, _ := config.ResolvePath(configPath); path != "" {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Println("Welcome to k8slogviewer!")
				fmt.Println("\nNo configuration found, the defaults will be used.")
				fmt.Println("   Run 'k8slogviewer configure' to pick your shell, kubeconfig and defaults.")
				fmt.Println("\nOr use 'k8slogviewer --help' to see all available options.")
				return
			}
		}
		_ = cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (json or yaml), default ~/.k8slogviewer/config.yaml")
	rootCmd.PersistentFlags().StringVar(&logger.Path, "logging-path", "", "file to output logs of the application")
	rootCmd.PersistentFlags().StringVar(&logger.Level, "logging-level", "", "logging level to output INFO WARN ERROR DEBUG TRACE")
	rootCmd.PersistentFlags().BoolVar(&logger.Stdout, "logging-stdout", false, "output application log on stderr")

	// Register completion for --logging-level flag
	_ = rootCmd.RegisterFlagCompletionFunc("logging-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(versionCommand)
}
