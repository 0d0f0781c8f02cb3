// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/log"
	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
	"github.com/herokl/k8s-log-viewer/pkg/log/impl/k8s"
	"github.com/herokl/k8s-log-viewer/pkg/log/impl/local"
	"github.com/herokl/k8s-log-viewer/pkg/session"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

var (
	configPath string

	logger log.MyLoggerOptions

	// target
	namespace   string
	container   string
	kubeContext string

	// query
	tailLines    int
	contextLines int
	since        string
	sinceDate    string
	keyword      string
	follow       bool
	matchMode    string
)

func onCommandStart(cmd *cobra.Command, args []string) error {
	return log.ConfigureMyLogger(&logger)
}

// loadConfig reads the config file named by --config or the default location.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		errorMsg := "failed to load config"
		switch {
		case errors.Is(err, config.ErrConfigParse):
			errorMsg = "invalid configuration file format"
		case errors.Is(err, config.ErrInvalidValue):
			errorMsg = "invalid configuration value"
		}
		return nil, fmt.Errorf("%s: %w", errorMsg, err)
	}
	if cfg.Path != "" {
		log.Debug("cmd: using config %s", cfg.Path)
	}
	return cfg, nil
}

// loadState returns the persisted state, empty when it cannot be read.
func loadState() *config.State {
	state, err := config.LoadState()
	if err != nil {
		log.Warn("cmd: reading state: %v", err)
	}
	return state
}

func saveTarget(sel session.Selector, logKeyword string) {
	if err := config.SaveState(&config.State{Target: sel, LogKeyword: logKeyword}); err != nil {
		log.Warn("cmd: saving state: %v", err)
	}
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "namespace of the pod")
	cmd.Flags().StringVar(&container, "container", "", "container of the pod, kubectl picks the default one when empty")
	cmd.Flags().StringVar(&kubeContext, "context", "", "kubeconfig context used for pod discovery")
}

func addQueryFlags(cmd *cobra.Command) {
	addTargetFlags(cmd)
	cmd.Flags().IntVarP(&tailLines, "tail", "t", 1000, "number of last lines to fetch, 0 for the whole log")
	cmd.Flags().IntVarP(&contextLines, "context-lines", "C", 0, "lines kept around each keyword hit; 0 follows the log")
	cmd.Flags().StringVar(&since, "since", "", "only lines newer than a duration (30m, 2h) or a time (HH:MM, RFC3339)")
	cmd.Flags().StringVar(&sinceDate, "since-date", "", "only lines since the start of a day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "log keyword filtered with grep and highlighted")
	cmd.Flags().BoolVarP(&follow, "follow", "f", true, "keep streaming new lines")
	cmd.Flags().StringVarP(&matchMode, "mode", "m", "", "match mode of the search keyword: substring, word or regex")
	cmd.MarkFlagsMutuallyExclusive("since", "since-date")

	_ = cmd.RegisterFlagCompletionFunc("mode", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"substring", "word", "regex"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveSelector picks the target from the argument, the flags, then the
// last target saved in state.
func resolveSelector(cmd *cobra.Command, args []string, state *config.State) (session.Selector, error) {
	var sel session.Selector
	if len(args) > 0 {
		parsed, err := session.ParseSelector(args[0])
		if err != nil {
			return sel, err
		}
		sel = parsed
	} else if state != nil {
		sel = state.Target
	}
	if cmd.Flags().Changed("namespace") {
		sel.Namespace = namespace
	}
	if cmd.Flags().Changed("container") {
		sel.Container = container
	}
	return sel, nil
}

// buildQuery starts from the configured defaults and applies the flags.
func buildQuery(cmd *cobra.Command, args []string, cfg *config.Config, state *config.State, now time.Time) (session.Query, error) {
	q := cfg.Query()
	sel, err := resolveSelector(cmd, args, state)
	if err != nil {
		return q, err
	}
	q.Selector = sel

	flags := cmd.Flags()
	if flags.Changed("tail") {
		q.TailLines = tailLines
	}
	if flags.Changed("context-lines") {
		q.ContextLines = contextLines
		q.Follow = contextLines == 0
	}
	if flags.Changed("follow") {
		q.Follow = follow
	}
	if flags.Changed("keyword") {
		q.LogKeyword = keyword
	} else if state != nil && len(args) == 0 && sel == state.Target {
		q.LogKeyword = state.LogKeyword
	}
	if flags.Changed("mode") {
		mode, err := highlight.ParseMatchMode(matchMode)
		if err != nil {
			return q, err
		}
		q.MatchMode = mode
	}

	switch {
	case since != "":
		start, err := ty.ParseStart(since, now)
		if err != nil {
			return q, err
		}
		seconds, err := ty.SecondsSince(start, now)
		if err != nil {
			return q, err
		}
		q.SinceSeconds = ty.OptWrap(seconds)
	case sinceDate != "":
		day, err := time.ParseInLocation(ty.DateFormat, strings.TrimSpace(sinceDate), now.Location())
		if err != nil {
			return q, fmt.Errorf("invalid --since-date %q (expected %s)", sinceDate, ty.DateFormat)
		}
		seconds, err := ty.SecondsSince(ty.StartOfDay(day), now)
		if err != nil {
			return q, fmt.Errorf("--since-date %s: %w", sinceDate, session.ErrSinceInFuture)
		}
		q.SinceSeconds = ty.OptWrap(seconds)
	}

	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

// newSession wires a session fetching through the local shell.
func newSession(cfg *config.Config, q session.Query, sink session.Sink, onError func(error)) (*session.Session, error) {
	fetcher, err := local.NewFetcher(local.EnvironmentFrom(cfg))
	if err != nil {
		return nil, err
	}
	s := session.New(fetcher, sink,
		session.WithQuery(q),
		session.WithDebounce(cfg.DebounceDelay()),
		session.WithMaxBufferBytes(cfg.MaxBufferBytes()),
		session.WithErrorHandler(onError),
	)
	log.Info("cmd: session %s for %s", s.ID(), q.Selector)
	return s, nil
}

func newK8sClient(cfg *config.Config) (*k8s.Client, error) {
	return k8s.New(k8s.Options{KubeConfig: cfg.KubeconfigPath, Context: kubeContext})
}
