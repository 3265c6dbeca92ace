package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/repflow/internal/advisor"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, adv *advisor.Advisor, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepFlow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepFlow strength training server. Query workout templates, completed sessions, exercise history, training volume, and progressive overload suggestions. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, advisor: adv, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetRecentSessions, Handler: h.getRecentSessions},
		server.ServerTool{Tool: toolGetSessionDetail, Handler: h.getSessionDetail},
		server.ServerTool{Tool: toolGetExerciseHistory, Handler: h.getExerciseHistory},
		server.ServerTool{Tool: toolGetVolumeSummary, Handler: h.getVolumeSummary},
		server.ServerTool{Tool: toolGetProgressionSuggestion, Handler: h.getProgressionSuggestion},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resTemplateCatalog, Handler: h.templateCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds      DataSource
	advisor *advisor.Advisor
	log     *slog.Logger
}

// --- Resource definitions ---

var resRecentSessions = mcp.NewResource(
	"repflow://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("Completed workout sessions from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)

var resTemplateCatalog = mcp.NewResource(
	"repflow://template_catalog",
	"Template Catalog",
	mcp.WithResourceDescription("All workout templates with their exercise definitions"),
	mcp.WithMIMEType("application/json"),
)
