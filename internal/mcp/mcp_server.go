// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the safeupdate MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Safe Update Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: check_packages ---
	s.AddTool(mcp.NewTool("check_packages",
		mcp.WithDescription("Check outdated gems of a Bundler project against the release cooldown, trust policy, risk signals and vulnerability audit. Never updates anything."),
		mcp.WithString("project_path", mcp.Description("Path to the Bundler project (defaults to the configured project path).")),
		mcp.WithArray("packages", mcp.Description("Restrict the check to these gem names."), mcp.WithStringItems()),
		mcp.WithNumber("cooldown_days", mcp.Description("Minimum release age in days. Defaults to the configured value.")),
		mcp.WithBoolean("audit", mcp.Description("Run bundler-audit alongside the checks. Defaults to the configured value.")),
		mcp.WithBoolean("risk", mcp.Description("Evaluate risk signals. Defaults to the configured value.")),
	), h.handleCheckPackages)

	// --- 2. Tool: get_cache_status ---
	s.AddTool(mcp.NewTool("get_cache_status",
		mcp.WithDescription("Report the owner baseline cache used to detect ownership changes."),
		mcp.WithString("project_path", mcp.Description("Path to the Bundler project (file backend only).")),
	), h.handleGetCacheStatus)

	return s
}

// StartMCPServer starts the safeupdate MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager, version string) error {
	s := NewMCPServer(baseCfg, mgr, version)
	return server.ServeStdio(s)
}
