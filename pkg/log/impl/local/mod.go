// SPDX-License-Identifier: GPL-3.0-only

// Package local builds the kubectl fetch command for a query and runs it
// through the configured shell.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/herokl/k8s-log-viewer/pkg/log"
	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
	"github.com/herokl/k8s-log-viewer/pkg/process"
	"github.com/herokl/k8s-log-viewer/pkg/session"
)

// DefaultCommandTemplate fetches logs with kubectl. With a log keyword the
// output is filtered by grep with context lines instead of being cut by --tail.
const DefaultCommandTemplate = `{{q .Kubectl}} logs {{q .Pod}}` +
	`{{if .Namespace}} -n {{q .Namespace}}{{end}}` +
	`{{if .Container}} -c {{q .Container}}{{end}}` +
	`{{if and (gt .TailLines 0) (not .Keyword)}} --tail={{.TailLines}}{{end}}` +
	`{{if gt .SinceSeconds 0}} --since={{.SinceSeconds}}s{{end}}` +
	`{{if .Follow}} --follow{{end}}` +
	`{{if .Keyword}} | grep --line-buffered -i -C {{.ContextLines}} -- {{q .Keyword}}{{end}}`

// Environment is the host configuration the command is built and run with.
type Environment struct {
	ShellPath      string
	KubeconfigPath string
	KubectlPath    string
	// CommandTemplate overrides DefaultCommandTemplate when set.
	CommandTemplate string
}

// EnvironmentFrom extracts the command environment of cfg.
func EnvironmentFrom(cfg *config.Config) Environment {
	return Environment{
		ShellPath:       cfg.ShellPath,
		KubeconfigPath:  cfg.KubeconfigPath,
		KubectlPath:     cfg.KubectlPath,
		CommandTemplate: cfg.CommandTemplate,
	}
}

// templateData is what the command template is executed against.
type templateData struct {
	Kubectl      string
	Namespace    string
	Pod          string
	Container    string
	TailLines    int
	ContextLines int
	SinceSeconds int64
	Follow       bool
	Keyword      string
}

// Fetcher launches log source processes. It implements session.Launcher.
type Fetcher struct {
	env  Environment
	tmpl *template.Template
}

var _ session.Launcher = (*Fetcher)(nil)

// NewFetcher parses the command template of env.
func NewFetcher(env Environment) (*Fetcher, error) {
	src := env.CommandTemplate
	if strings.TrimSpace(src) == "" {
		src = DefaultCommandTemplate
	}
	tmpl, err := template.New("cmd").Funcs(template.FuncMap{"q": ShellQuote}).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command template: %w", err)
	}
	if env.KubectlPath == "" {
		env.KubectlPath = "kubectl"
	}
	return &Fetcher{env: env, tmpl: tmpl}, nil
}

// BuildCommand renders the shell command line for q.
func (f *Fetcher) BuildCommand(q session.Query) (string, error) {
	if q.Selector.Empty() {
		return "", session.ErrNoTarget
	}
	if err := q.Validate(); err != nil {
		return "", err
	}
	data := templateData{
		Kubectl:      f.env.KubectlPath,
		Namespace:    q.Selector.Namespace,
		Pod:          q.Selector.Pod,
		Container:    q.Selector.Container,
		TailLines:    q.TailLines,
		ContextLines: q.ContextLines,
		SinceSeconds: q.SinceSeconds.Or(0),
		Follow:       q.Follow,
		Keyword:      q.LogKeyword,
	}
	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute command template: %w", err)
	}
	return buf.String(), nil
}

// Command returns the unstarted process for q, checking the environment first.
func (f *Fetcher) Command(q session.Query) (*exec.Cmd, string, error) {
	if err := f.checkEnvironment(); err != nil {
		return nil, "", err
	}
	script, err := f.BuildCommand(q)
	if err != nil {
		return nil, "", err
	}
	cmd := exec.Command(f.env.ShellPath, "-c", script)
	cmd.Env = append(os.Environ(), "KUBECONFIG="+f.env.KubeconfigPath)
	return cmd, script, nil
}

// Launch starts the fetch process for q. Environment problems are reported
// as *session.ConfigurationError and start failures as
// *session.ProcessStartError.
func (f *Fetcher) Launch(ctx context.Context, q session.Query) (*process.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd, script, err := f.Command(q)
	if err != nil {
		return nil, err
	}
	log.Debug("local: running %s -c %s", f.env.ShellPath, script)
	h, err := process.Start(cmd)
	if err != nil {
		return nil, &session.ProcessStartError{Command: script, Err: err}
	}
	return h, nil
}

func (f *Fetcher) checkEnvironment() error {
	if f.env.ShellPath == "" {
		return &session.ConfigurationError{Field: "shellPath", Err: config.ErrMissingShell}
	}
	if _, err := os.Stat(f.env.ShellPath); err != nil {
		if _, lerr := exec.LookPath(f.env.ShellPath); lerr != nil {
			return &session.ConfigurationError{Field: "shellPath", Err: errors.Join(config.ErrMissingShell, err)}
		}
	}
	if f.env.KubeconfigPath == "" {
		return &session.ConfigurationError{Field: "kubeconfigPath", Err: config.ErrMissingKubeconfig}
	}
	if _, err := os.Stat(f.env.KubeconfigPath); err != nil {
		return &session.ConfigurationError{Field: "kubeconfigPath", Err: errors.Join(config.ErrMissingKubeconfig, err)}
	}
	return nil
}

// ShellQuote quotes s as a single POSIX shell word.
func ShellQuote(s string) string {
	if s != "" && strings.Trim(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./=:@") == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
