// SPDX-License-Identifier: GPL-3.0-only
package local

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
	"github.com/herokl/k8s-log-viewer/pkg/session"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

func TestBuildCommand(t *testing.T) {
	base := session.Query{Selector: session.Selector{Namespace: "prod", Pod: "api-7d9"}}

	tests := []struct {
		name   string
		mutate func(q *session.Query)
		want   string
	}{
		{
			name: "namespace and pod only",
			want: "kubectl logs api-7d9 -n prod",
		},
		{
			name: "tail since follow container",
			mutate: func(q *session.Query) {
				q.Selector.Container = "app"
				q.TailLines = 1000
				q.SinceSeconds = ty.OptWrap(int64(3600))
				q.Follow = true
			},
			want: "kubectl logs api-7d9 -n prod -c app --tail=1000 --since=3600s --follow",
		},
		{
			name: "tail zero fetches everything",
			mutate: func(q *session.Query) {
				q.TailLines = 0
			},
			want: "kubectl logs api-7d9 -n prod",
		},
		{
			name: "keyword pipes through grep instead of tail",
			mutate: func(q *session.Query) {
				q.TailLines = 1000
				q.ContextLines = 2
				q.LogKeyword = "error"
			},
			want: "kubectl logs api-7d9 -n prod | grep --line-buffered -i -C 2 -- error",
		},
		{
			name: "keyword is shell quoted",
			mutate: func(q *session.Query) {
				q.LogKeyword = `it's "bad"; rm -rf /`
			},
			want: `kubectl logs api-7d9 -n prod | grep --line-buffered -i -C 0 -- 'it'\''s "bad"; rm -rf /'`,
		},
		{
			name: "unset since is omitted",
			mutate: func(q *session.Query) {
				q.SinceSeconds = ty.Opt[int64]{Set: true, Valid: false}
			},
			want: "kubectl logs api-7d9 -n prod",
		},
	}

	f, err := NewFetcher(Environment{})
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			if tt.mutate != nil {
				tt.mutate(&q)
			}
			got, err := f.BuildCommand(q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCommand_Errors(t *testing.T) {
	f, err := NewFetcher(Environment{})
	require.NoError(t, err)

	_, err = f.BuildCommand(session.Query{})
	assert.ErrorIs(t, err, session.ErrNoTarget)

	_, err = f.BuildCommand(session.Query{Selector: session.Selector{Pod: "p"}, TailLines: -1})
	assert.Error(t, err)

	_, err = NewFetcher(Environment{CommandTemplate: "{{.Pod"})
	assert.Error(t, err)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "api-7d9", ShellQuote("api-7d9"))
	assert.Equal(t, "''", ShellQuote(""))
	assert.Equal(t, "'a b'", ShellQuote("a b"))
	assert.Equal(t, `'$(x)'`, ShellQuote("$(x)"))
}

func TestLaunch_ConfigurationErrors(t *testing.T) {
	q := session.Query{Selector: session.Selector{Pod: "p"}}
	kube := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(kube, []byte("apiVersion: v1\n"), 0o600))

	tests := []struct {
		name    string
		env     Environment
		field   string
		wantErr error
	}{
		{name: "no shell", env: Environment{KubeconfigPath: kube}, field: "shellPath", wantErr: config.ErrMissingShell},
		{name: "shell not found", env: Environment{ShellPath: "/nonexistent/bash", KubeconfigPath: kube}, field: "shellPath", wantErr: config.ErrMissingShell},
		{name: "no kubeconfig", env: Environment{ShellPath: shellOrSkip(t)}, field: "kubeconfigPath", wantErr: config.ErrMissingKubeconfig},
		{name: "kubeconfig not found", env: Environment{ShellPath: shellOrSkip(t), KubeconfigPath: kube + ".missing"}, field: "kubeconfigPath", wantErr: config.ErrMissingKubeconfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFetcher(tt.env)
			require.NoError(t, err)
			_, err = f.Launch(context.Background(), q)

			var cfgErr *session.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func shellOrSkip(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestLaunch_RunsTemplateWithKubeconfig(t *testing.T) {
	sh := shellOrSkip(t)
	kube := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(kube, []byte("apiVersion: v1\n"), 0o600))

	f, err := NewFetcher(Environment{
		ShellPath:       sh,
		KubeconfigPath:  kube,
		CommandTemplate: `echo "pod={{.Pod}} kube=$KUBECONFIG"; echo oops 1>&2`,
	})
	require.NoError(t, err)

	h, err := f.Launch(context.Background(), session.Query{Selector: session.Selector{Pod: "api"}})
	require.NoError(t, err)
	out, err := io.ReadAll(h.Stdout())
	require.NoError(t, err)
	require.NoError(t, h.Wait())

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Contains(t, lines, "pod=api kube="+kube)
	assert.Contains(t, lines, "oops")
}

func TestLaunch_CancelledContext(t *testing.T) {
	f, err := NewFetcher(Environment{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Launch(ctx, session.Query{Selector: session.Selector{Pod: "p"}})
	assert.ErrorIs(t, err, context.Canceled)
}
