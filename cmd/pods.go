// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/herokl/k8s-log-viewer/pkg/log/impl/k8s"
	"github.com/herokl/k8s-log-viewer/pkg/session"
)

var (
	jsonOutput bool
	exportDir  string
)

var podsCmd = &cobra.Command{
	Use:   "pods [filter]",
	Short: "List the pods and containers logs can be viewed for",
	Long: `List namespace/pod:container for every pod, keeping those whose namespace or
name contains the filter, ignoring case.

Examples:
  k8slogviewer pods
  k8slogviewer pods api -n prod
  k8slogviewer pods --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newK8sClient(cfg)
		if err != nil {
			return err
		}
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		targets, err := client.ListTargets(cmd.Context(), namespace, filter)
		if err != nil {
			return err
		}
		return printTargets(cmd.OutOrStdout(), targets, jsonOutput)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [[namespace/]pod[:container]]",
	Short: "Write the complete log of a pod to a file",
	Long: `Write the complete, non-following log of a pod to
logs_<namespace>_<pod>_<yyyyMMdd_HHmmss>.txt in the output directory.

Without a target the last one used is exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sel, err := resolveSelector(cmd, args, loadState())
		if err != nil {
			return err
		}
		if sel.Empty() {
			return session.ErrNoTarget
		}
		client, err := newK8sClient(cfg)
		if err != nil {
			return err
		}
		path, n, err := exportLogs(cmd.Context(), client, sel, exportDir, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", humanize.Bytes(uint64(n)), path)
		return nil
	},
}

func init() {
	podsCmd.Flags().StringVarP(&namespace, "namespace", "n", "", "only list pods of this namespace")
	podsCmd.Flags().StringVar(&kubeContext, "context", "", "kubeconfig context")
	podsCmd.Flags().BoolVar(&jsonOutput, "json", false, "output the targets as JSON")

	addTargetFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportDir, "output", "o", ".", "directory the log file is written to")

	rootCmd.AddCommand(podsCmd)
	rootCmd.AddCommand(exportCmd)
}

func printTargets(w io.Writer, targets []k8s.Target, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(targets)
	}
	if len(targets) == 0 {
		fmt.Fprintln(w, "no pod found")
		return nil
	}
	for _, t := range targets {
		containers := t.Containers
		if len(containers) == 0 {
			containers = []string{""}
		}
		for _, c := range containers {
			sel := session.Selector{Namespace: t.Namespace, Pod: t.Pod, Container: c}
			fmt.Fprintf(w, "%-60s %s\n", sel, t.Phase)
		}
	}
	return nil
}

type exporter interface {
	Export(ctx context.Context, sel session.Selector, w io.Writer) (int64, error)
}

// exportLogs writes the log of sel to a new file in dir. A partial file is
// removed when the export fails.
func exportLogs(ctx context.Context, client exporter, sel session.Selector, dir string, now time.Time) (string, int64, error) {
	path := filepath.Join(dir, k8s.ExportFileName(sel.Namespace, sel.Pod, now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, err
	}
	n, err := client.Export(ctx, sel, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", n, err
	}
	return path, n, nil
}
