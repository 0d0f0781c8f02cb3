// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/herokl/k8s-log-viewer/pkg/log"
	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
	"github.com/herokl/k8s-log-viewer/pkg/session"
	"github.com/herokl/k8s-log-viewer/pkg/tui"
)

var tuiCmd = &cobra.Command{
	Use:     "tui [[namespace/]pod[:container]]",
	Aliases: []string{"live", "ui"},
	Short:   "Launch the interactive log viewer",
	Long: `Launch an interactive Terminal User Interface to tail and search pod logs.

The TUI provides:
  - A pod picker over every namespace (p)
  - Live streaming with the log keyword highlighted
  - Incremental search with / and n/N to jump between matches
  - Prompts for the keyword (K), since (s), tail (t) and context (x)

Without a target the last one used is reopened, or the picker is shown.

Examples:
  k8slogviewer tui
  k8slogviewer tui prod/api-7d9f -k error -C 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	addQueryFlags(tuiCmd)
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("%w\nTip: run 'k8slogviewer configure' to set up a configuration", err)
	}
	q, err := buildQuery(cmd, args, cfg, loadState(), time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// the program is created after the session it displays
	var p *tea.Program
	send := func(msg tea.Msg) { p.Send(msg) }

	s, err := newSession(cfg, q, tui.NewProgramSink(send), func(err error) {
		send(tui.ErrorMsg{Err: err})
	})
	if err != nil {
		return err
	}

	var lister tui.TargetLister
	if client, err := newK8sClient(cfg); err != nil {
		log.Warn("cmd: pod discovery unavailable: %v", err)
	} else {
		lister = client
	}

	model := tui.New(ctx, s, lister)
	model.Styles.Tags = tui.TagStylesFromConfig(cfg.Styles)
	model.OnTarget = func(sel session.Selector) {
		saveTarget(sel, s.Query().LogKeyword)
	}

	p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if cfg.Path != "" {
		watcher, err := config.NewWatcher(cfg.Path,
			func(c *config.Config) { send(tui.ConfigReloadedMsg{Config: c}) },
			func(err error) { send(tui.ErrorMsg{Err: err}) },
		)
		if err != nil {
			log.Warn("cmd: %v", err)
		} else if err := watcher.Start(ctx); err != nil {
			log.Warn("cmd: %v", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	_, runErr := p.Run()
	// the session dispatcher may be blocked in Send until the program exits
	closeErr := s.Close()
	if runErr != nil {
		return fmt.Errorf("running TUI: %w", runErr)
	}
	if closeErr != nil {
		return closeErr
	}
	if last := s.Query(); !last.Selector.Empty() {
		saveTarget(last.Selector, last.LogKeyword)
	}
	return nil
}
