// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/herokl/k8s-log-viewer/pkg/log"
	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
	"github.com/herokl/k8s-log-viewer/pkg/log/impl/k8s"
	"github.com/herokl/k8s-log-viewer/pkg/session"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

// maxToolLines bounds the lines returned by fetch_logs.
const maxToolLines = 5000

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Starts a MCP server",
	Long: `Starts a MCP server on stdio, exposing pod discovery and log fetching as
tools for agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newK8sClient(cfg)
		if err != nil {
			return err
		}
		bundle, err := BuildMCPServer(cfg, client)
		if err != nil {
			return err
		}
		log.Info("mcp: serving on stdio")
		return server.ServeStdio(bundle.Server)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&kubeContext, "context", "", "kubeconfig context")
	rootCmd.AddCommand(mcpCmd)
}

// podSource is what the MCP tools read from.
type podSource interface {
	ListTargets(ctx context.Context, namespace, filter string) ([]k8s.Target, error)
	Fetch(ctx context.Context, q session.Query) ([]string, error)
}

// MCPBundle holds the server and its tool handlers, exposed for tests.
type MCPBundle struct {
	Server       *server.MCPServer
	ToolHandlers map[string]server.ToolHandlerFunc
}

// BuildMCPServer registers the list_pods and fetch_logs tools.
func BuildMCPServer(cfg *config.Config, pods podSource) (*MCPBundle, error) {
	if pods == nil {
		return nil, fmt.Errorf("no pod source")
	}
	s := server.NewMCPServer("k8slogviewer", sha1ver, server.WithToolCapabilities(false))
	bundle := &MCPBundle{Server: s, ToolHandlers: map[string]server.ToolHandlerFunc{}}

	add := func(tool mcp.Tool, handler server.ToolHandlerFunc) {
		s.AddTool(tool, handler)
		bundle.ToolHandlers[tool.Name] = handler
	}

	add(mcp.NewTool("list_pods",
		mcp.WithDescription("List namespace/pod:container targets whose namespace or pod name contains the filter."),
		mcp.WithString("namespace", mcp.Description("Only list pods of this namespace")),
		mcp.WithString("filter", mcp.Description("Case-insensitive substring of the namespace or pod name")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		targets, err := pods.ListTargets(ctx, req.GetString("namespace", ""), req.GetString("filter", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := json.Marshal(targets)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	add(mcp.NewTool("fetch_logs",
		mcp.WithDescription("Fetch the recent log lines of a pod. With a keyword only matching lines and their context are returned."),
		mcp.WithString("target", mcp.Required(), mcp.Description("[namespace/]pod[:container]")),
		mcp.WithNumber("tail", mcp.Description("Number of last lines, 0 for the whole log")),
		mcp.WithString("since", mcp.Description("Only lines newer than a duration (30m, 2h) or a time (RFC3339, YYYY-MM-DD)")),
		mcp.WithString("keyword", mcp.Description("Keep lines matching this keyword")),
		mcp.WithNumber("context", mcp.Description("Lines kept around each keyword match")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := toolQuery(cfg, req, time.Now())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		lines, err := pods.Fetch(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(lines) > maxToolLines {
			lines = lines[len(lines)-maxToolLines:]
		}
		log.Debug("mcp: fetch_logs %s returned %d lines", q.Selector, len(lines))
		return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
	})

	return bundle, nil
}

// toolQuery builds a one-shot, non-following query from tool arguments.
func toolQuery(cfg *config.Config, req mcp.CallToolRequest, now time.Time) (session.Query, error) {
	q := cfg.Query()
	q.Follow = false

	target, err := req.RequireString("target")
	if err != nil {
		return q, err
	}
	if q.Selector, err = session.ParseSelector(target); err != nil {
		return q, err
	}
	q.TailLines = req.GetInt("tail", q.TailLines)
	q.ContextLines = req.GetInt("context", q.ContextLines)
	q.LogKeyword = req.GetString("keyword", "")
	if value := req.GetString("since", ""); value != "" {
		start, err := ty.ParseStart(value, now)
		if err != nil {
			return q, err
		}
		seconds, err := ty.SecondsSince(start, now)
		if err != nil {
			return q, err
		}
		q.SinceSeconds = ty.OptWrap(seconds)
	}
	return q, q.Validate()
}
