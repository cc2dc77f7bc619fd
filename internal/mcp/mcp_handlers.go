package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/huangsam/safeupdate/core"
	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/internal/iocache"
	"github.com/huangsam/safeupdate/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

func (h *toolHandler) handleCheckPackages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.projectConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid project: %v", err)), nil
	}
	cfg.Packages = request.GetStringSlice("packages", nil)
	if days := request.GetInt("cooldown_days", cfg.CooldownDays); days >= 0 {
		cfg.CooldownDays = days
	} else {
		return mcp.NewToolResultError(fmt.Sprintf("cooldown_days cannot be negative (received %d)", days)), nil
	}
	cfg.Audit = request.GetBool("audit", cfg.Audit)
	cfg.Risk = request.GetBool("risk", cfg.Risk)
	cfg.Update = false
	cfg.LockOnly = false
	cfg.DryRun = false

	mgr, closeStores := h.managerFor(cfg)
	defer closeStores()

	deps := core.NewDependencies(cfg, mgr)
	report, err := core.GetSafeUpdateReport(core.WithSuppressHeader(ctx), cfg, deps)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetCacheStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.projectConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid project: %v", err)), nil
	}

	mgr, closeStores := h.managerFor(cfg)
	defer closeStores()

	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetOwnerStore()
	}
	if store == nil {
		return mcp.NewToolResultError("owner cache is not initialized"), nil
	}

	status, err := store.GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get cache status: %v", err)), nil
	}
	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// projectConfig clones the base config and applies the project_path argument.
func (h *toolHandler) projectConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	p := request.GetString("project_path", "")
	if p == "" {
		return cfg, nil
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", p)
	}
	cfg.ProjectPath = filepath.Clean(p)
	return cfg, nil
}

// managerFor returns the cache manager to use for cfg. The file backend keeps its
// cache inside the project, so another project gets its own file store.
func (h *toolHandler) managerFor(cfg *contract.Config) (contract.CacheManager, func()) {
	noop := func() {}
	if cfg.CacheBackend != schema.FileBackend || cfg.ProjectPath == h.baseCfg.ProjectPath {
		return h.mgr, noop
	}

	var history contract.HistoryStore
	if h.mgr != nil {
		history = h.mgr.GetHistoryStore()
	}
	store := iocache.NewFileStore(cfg.CacheFilePath())
	return iocache.NewCacheStoreManager(store, history), func() { _ = store.Close() }
}
