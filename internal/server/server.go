package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/yousuf/stackmap/internal/config"
	"github.com/yousuf/stackmap/internal/stacktrace"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// ResolveStackTraceArgs represents the arguments for the resolve_stack_trace tool
type ResolveStackTraceArgs struct {
	StackTrace    string `json:"stackTrace" jsonschema:"Raw stack trace text (paste the whole thing)"`
	WorkspaceRoot string `json:"workspaceRoot,omitempty" jsonschema:"Directory to resolve frames against. Defaults to the server's configured workspace root."`
}

// DetectStackFormatArgs represents the arguments for the detect_stack_format tool
type DetectStackFormatArgs struct {
	StackTrace string `json:"stackTrace" jsonschema:"Raw stack trace text"`
}

// state is swapped as a whole when configuration changes
type state struct {
	analyzer      *stacktrace.Analyzer
	workspaceRoot string
}

// Service holds the analyzer shared by every MCP server instance.
type Service struct {
	current atomic.Pointer[state]
	logger  *zap.Logger
}

// NewService creates a service from cfg.
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{logger: logger}
	if err := s.Update(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Update atomically replaces the analyzer and default workspace root.
// In-flight requests finish with the previous configuration.
func (s *Service) Update(cfg *config.Config) error {
	analyzer, err := cfg.NewAnalyzer(s.logger)
	if err != nil {
		return fmt.Errorf("failed to build analyzer: %w", err)
	}
	s.current.Store(&state{
		analyzer:      analyzer,
		workspaceRoot: cfg.WorkspaceRoot,
	})
	return nil
}

// WorkspaceRoot returns the default workspace root.
func (s *Service) WorkspaceRoot() string {
	return s.current.Load().workspaceRoot
}

// Resolve analyzes a trace against root, or the default root when empty.
func (s *Service) Resolve(ctx context.Context, trace, root string) stacktrace.Result {
	st := s.current.Load()
	if root == "" {
		root = st.workspaceRoot
	}

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		loggerFromContext(ctx, s.logger).Warn("workspace root is not a directory, frames will not resolve",
			zap.String("root", root))
	}

	return st.analyzer.Analyze(trace, root)
}

// NewMcpServer creates and configures the MCP server
func NewMcpServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "stackmap",
		Version: Version,
	}, &mcp.ServerOptions{
		Instructions: `
Stack trace resolution for the current workspace.

Supported formats: Node.js, Python, Go, Ruby, Java (including Kotlin and Scala).

Available Tools:
1. "resolve_stack_trace" - Parse a raw stack trace and map each frame to a file in the workspace
2. "detect_stack_format" - Report which runtime produced a stack trace

Result fields:
- format: detected runtime, or "unknown" when nothing could be parsed
- entryFrame: index of the first application frame that exists in the workspace (null if none)
- relatedFiles: workspace-relative files referenced by the trace, in order of appearance
- frames: every parsed frame with file, line, column, function and isInternal

Notes:
- Frames in dependencies, the standard library or runtime internals are marked isInternal and not resolved
- Container and CI paths such as /app/ or /home/runner/work/ are rewritten relative to the workspace
- Unresolved frames keep their original file; use search tools to locate them
`,
	})

	server.AddReceivingMiddleware(createRequestIDMiddleware(), createLoggingMiddleware(svc.logger))

	mcp.AddTool(server, &mcp.Tool{
		Name: "resolve_stack_trace",
		Description: "Takes a raw stack trace and resolves each frame to the actual source file and line in the workspace. " +
			"Handles container and CI path mappings. Turns production error traces into actionable file:line references.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ResolveStackTraceArgs) (*mcp.CallToolResult, any, error) {
		res := svc.Resolve(ctx, args.StackTrace, args.WorkspaceRoot)

		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode result: %w", err)
		}

		loggerFromContext(ctx, svc.logger).Debug("resolved stack trace",
			zap.Stringer("format", res.Dialect),
			zap.Int("frames", len(res.Frames)),
			zap.Strings("related", res.RelatedFiles))

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(data)},
			},
		}, nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "detect_stack_format",
		Description: "Detect which runtime produced a stack trace. Returns one of: nodejs, python, go, ruby, java, unknown.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DetectStackFormatArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: stacktrace.Detect(args.StackTrace).String()},
			},
		}, nil, nil
	})

	return server
}
