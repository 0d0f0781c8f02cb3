// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/herokl/k8s-log-viewer/pkg/log"
	"github.com/herokl/k8s-log-viewer/pkg/log/printer"
	"github.com/herokl/k8s-log-viewer/pkg/session"
)

var (
	searchKeyword string
	colorOutput   bool
)

var tailCmd = &cobra.Command{
	Use:   "tail [[namespace/]pod[:container]]",
	Short: "Stream the logs of a pod to the terminal",
	Long: `Stream the logs of a pod to the terminal with keyword highlighting.

Without a target the last one used is reused.

Examples:
  # Last 1000 lines of a pod, following new lines
  k8slogviewer tail prod/api-7d9f

  # Lines around "timeout" since this morning, highlighting "retry"
  k8slogviewer tail prod/api-7d9f -k timeout -C 3 --since-date 2024-06-24 --search retry

  # The whole log without following
  k8slogviewer tail api-7d9f -n prod --tail 0 --follow=false`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runTail(ctx, cmd, args, os.Stdout, os.Stderr)
	},
}

func init() {
	addQueryFlags(tailCmd)
	tailCmd.Flags().StringVarP(&searchKeyword, "search", "s", "", "additional keyword highlighted in the output")
	tailCmd.Flags().BoolVar(&colorOutput, "color", false, "force colors on or off, detected from the terminal by default")
	rootCmd.AddCommand(tailCmd)
}

// tailSink prints the stream and reports when it has ended.
type tailSink struct {
	*printer.TerminalSink

	streamed bool
	once     sync.Once
	done     chan struct{}
	last     session.Snapshot
}

func newTailSink(w io.Writer, palette printer.Palette) *tailSink {
	return &tailSink{
		TerminalSink: printer.NewTerminalSink(w, palette),
		done:         make(chan struct{}),
	}
}

func (t *tailSink) StatusChanged(snap session.Snapshot) {
	switch snap.State {
	case session.Streaming:
		t.streamed = true
	case session.Idle:
		if t.streamed {
			t.once.Do(func() {
				t.last = snap
				close(t.done)
			})
		}
	}
}

func runTail(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	state := loadState()
	q, err := buildQuery(cmd, args, cfg, state, time.Now())
	if err != nil {
		return err
	}
	if q.Selector.Empty() {
		return fmt.Errorf("%w: pass [namespace/]pod[:container] or pick one with 'k8slogviewer tui'", session.ErrNoTarget)
	}
	if q.TailLines == 0 && q.LogKeyword == "" {
		fmt.Fprintln(stderr, "warning: --tail 0 fetches the whole log of the pod")
	}

	var explicit *bool
	if cmd.Flags().Changed("color") {
		explicit = &colorOutput
	}
	var palette printer.Palette
	if printer.InitColor(explicit, stdout) {
		palette = printer.PaletteFromConfig(cfg.Styles)
	}
	sink := newTailSink(stdout, palette)

	s, err := newSession(cfg, q, sink, func(err error) {
		fmt.Fprintf(stderr, "error: %v\n", err)
	})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if searchKeyword != "" {
		if err := s.OpenSearch(searchKeyword); err != nil {
			return err
		}
	}
	if err := s.Refresh(ctx); err != nil {
		var cfgErr *session.ConfigurationError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("%w (run 'k8slogviewer configure')", err)
		}
		return err
	}
	saveTarget(q.Selector, q.LogKeyword)

	select {
	case <-ctx.Done():
		log.Info("cmd: tail interrupted")
	case <-sink.done:
	}
	if err := s.Close(); err != nil {
		return err
	}
	if err := sink.Flush(); err != nil {
		return err
	}
	if searchKeyword != "" {
		_, total := s.MatchCount()
		fmt.Fprintf(stderr, "%d matches for %q\n", total, searchKeyword)
	}
	select {
	case <-sink.done:
		if sink.last.Err != nil {
			return fmt.Errorf("stream of %s stopped", q.Selector)
		}
	default:
	}
	return nil
}
