// SPDX-License-Identifier: GPL-3.0-only

// Package k8s talks to the Kubernetes API directly: it discovers the pods
// and containers logs can be fetched from and exports complete pod logs.
package k8s

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	// Import all auth plugins (incl. exec, OIDC, GCP, Azure, etc.) so kubeconfigs
	// referencing them (e.g. auth-provider: oidc) are supported without extra code.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/log"
	"github.com/herokl/k8s-log-viewer/pkg/session"
)

// ExportTimeFormat is the timestamp layout used in export file names.
const ExportTimeFormat = "20060102_150405"

// Options defines how the Kubernetes client is configured.
type Options struct {
	KubeConfig            string `json:"kubeConfig"`
	Context               string `json:"context"`
	InsecureSkipTLSVerify bool   `json:"insecureSkipTLSVerify"`
}

// Client wraps a Kubernetes clientset.
type Client struct {
	clientset kubernetes.Interface
}

// New builds a client from a kubeconfig file, ~/.kube/config by default.
func New(options Options) (*Client, error) {
	kubeconfig := options.KubeConfig
	if kubeconfig == "" {
		kubeconfig = filepath.Join(homedir.HomeDir(), ".kube", "config")
	}

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
		&clientcmd.ConfigOverrides{CurrentContext: options.Context},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig %s: %w", kubeconfig, err)
	}

	// Apply insecureSkipTLSVerify setting if provided
	if options.InsecureSkipTLSVerify {
		config.Insecure = true
		config.CAData = nil
		config.CAFile = ""
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}
	return NewForClientset(clientset), nil
}

// NewForClientset wraps an existing clientset.
func NewForClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// Target is a pod logs can be fetched from.
type Target struct {
	Namespace  string   `json:"namespace"`
	Pod        string   `json:"pod"`
	Containers []string `json:"containers"`
	Phase      string   `json:"phase"`
}

// Selector returns the selector of the target's first container.
func (t Target) Selector() session.Selector {
	sel := session.Selector{Namespace: t.Namespace, Pod: t.Pod}
	if len(t.Containers) > 0 {
		sel.Container = t.Containers[0]
	}
	return sel
}

// ListTargets lists pods in namespace, all namespaces when empty, keeping
// those whose namespace or name contains filter, ignoring case. Results are
// sorted by namespace then pod.
func (c *Client) ListTargets(ctx context.Context, namespace, filter string) ([]Target, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing pods: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	matching := lo.Filter(pods.Items, func(p v1.Pod, _ int) bool {
		return needle == "" ||
			strings.Contains(strings.ToLower(p.Namespace), needle) ||
			strings.Contains(strings.ToLower(p.Name), needle)
	})
	targets := lo.Map(matching, func(p v1.Pod, _ int) Target {
		return Target{
			Namespace:  p.Namespace,
			Pod:        p.Name,
			Containers: lo.Map(p.Spec.Containers, func(c v1.Container, _ int) string { return c.Name }),
			Phase:      string(p.Status.Phase),
		}
	})
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Namespace != targets[j].Namespace {
			return targets[i].Namespace < targets[j].Namespace
		}
		return targets[i].Pod < targets[j].Pod
	})
	log.Debug("k8s: %d of %d pods match %q", len(targets), len(pods.Items), filter)
	return targets, nil
}

// Export copies the complete, non-following log of sel to w.
func (c *Client) Export(ctx context.Context, sel session.Selector, w io.Writer) (int64, error) {
	stream, err := c.stream(ctx, sel, &v1.PodLogOptions{Container: sel.Container})
	if err != nil {
		return 0, err
	}
	defer func() { _ = stream.Close() }()

	n, err := io.Copy(w, stream)
	if err != nil {
		return n, fmt.Errorf("exporting logs of %s: %w", sel, err)
	}
	log.Info("k8s: exported %d bytes from %s", n, sel)
	return n, nil
}

// Fetch returns the log lines of q without following. When q has a log
// keyword only matching lines and their q.ContextLines neighbours are kept.
func (c *Client) Fetch(ctx context.Context, q session.Query) ([]string, error) {
	if q.Selector.Empty() {
		return nil, session.ErrNoTarget
	}
	opts := &v1.PodLogOptions{Container: q.Selector.Container}
	if q.TailLines > 0 && q.LogKeyword == "" {
		tail := int64(q.TailLines)
		opts.TailLines = &tail
	}
	if since, ok := q.SinceSeconds.Get(); ok && since > 0 {
		opts.SinceSeconds = &since
	}

	stream, err := c.stream(ctx, q.Selector, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	var lines []string
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("reading logs of %s: %w", q.Selector, err)
	}

	if q.LogKeyword == "" {
		return lines, nil
	}
	m, err := highlight.NewMatcher(q.LogKeyword, highlight.ModeSubstring)
	if err != nil {
		return nil, err
	}
	return FilterContext(lines, m, q.ContextLines), nil
}

func (c *Client) stream(ctx context.Context, sel session.Selector, opts *v1.PodLogOptions) (io.ReadCloser, error) {
	if sel.Empty() {
		return nil, session.ErrNoTarget
	}
	ns := sel.Namespace
	if ns == "" {
		ns = metav1.NamespaceDefault
	}
	stream, err := c.clientset.CoreV1().Pods(ns).GetLogs(sel.Pod, opts).Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("streaming logs of %s: %w", sel, err)
	}
	return stream, nil
}

// FilterContext keeps the lines matched by m together with up to n lines
// before and after each of them, like grep -C.
func FilterContext(lines []string, m *highlight.Matcher, n int) []string {
	keep := make([]bool, len(lines))
	for i, line := range lines {
		if len(m.FindAll(line)) == 0 {
			continue
		}
		for j := max(0, i-n); j <= min(len(lines)-1, i+n); j++ {
			keep[j] = true
		}
	}
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if keep[i] {
			out = append(out, line)
		}
	}
	return out
}

// ExportFileName names the export of ns/pod taken at t.
func ExportFileName(ns, pod string, t time.Time) string {
	return fmt.Sprintf("logs_%s_%s_%s.txt", ns, pod, t.Format(ExportTimeFormat))
}
