package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yousuf/stackmap/internal/config"
	"github.com/yousuf/stackmap/internal/stacktrace"
)

const nodeTrace = "Error: boom\n    at foo (src/app.ts:10:5)\n    at bar (node_modules/lib/index.js:3:1)"

func newWorkspace(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o644))
	}
	return root
}

func newService(t *testing.T, root string) (*Service, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)

	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = root

	svc, err := NewService(cfg, zap.New(core))
	require.NoError(t, err)
	return svc, logs
}

// connect wires an in-process client to a fresh MCP server for svc.
func connect(t *testing.T, svc *Service) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := NewMcpServer(svc).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "stackmap-test-client",
		Version: "1.0.0",
	}, &mcp.ClientOptions{})

	cs, err := client.Connect(ctx, clientTransport, &mcp.ClientSessionOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s returned an error", name)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestListTools(t *testing.T) {
	svc, _ := newService(t, t.TempDir())
	cs := connect(t, svc)

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"resolve_stack_trace", "detect_stack_format"}, names)
}

func TestResolveStackTrace_MatchesCore(t *testing.T) {
	root := newWorkspace(t, "src/app.ts")
	svc, _ := newService(t, t.TempDir())
	cs := connect(t, svc)

	text := callText(t, cs, "resolve_stack_trace", map[string]any{
		"stackTrace":    nodeTrace,
		"workspaceRoot": root,
	})

	var got stacktrace.Result
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, stacktrace.Assemble(nodeTrace, root), got)
	assert.Equal(t, []string{"src/app.ts"}, got.RelatedFiles)
}

func TestResolveStackTrace_DefaultWorkspace(t *testing.T) {
	root := newWorkspace(t, "pkg/mod.py")
	svc, _ := newService(t, root)
	cs := connect(t, svc)

	text := callText(t, cs, "resolve_stack_trace", map[string]any{
		"stackTrace": `  File "/app/pkg/mod.py", line 42, in run`,
	})

	var got stacktrace.Result
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, stacktrace.Python, got.Dialect)
	require.Len(t, got.Frames, 1)
	assert.Equal(t, "pkg/mod.py", got.Frames[0].ResolvedFile)
}

func TestResolveStackTrace_Unparseable(t *testing.T) {
	svc, _ := newService(t, t.TempDir())
	cs := connect(t, svc)

	text := callText(t, cs, "resolve_stack_trace", map[string]any{
		"stackTrace": "not a trace",
	})

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &raw))
	assert.Equal(t, "unknown", raw["format"])
	assert.Equal(t, []any{}, raw["frames"])
	assert.Equal(t, "not a trace", raw["raw"])
	assert.Equal(t, stacktrace.UnparsedNote, raw["note"])
}

func TestResolveStackTrace_InvalidRootDegrades(t *testing.T) {
	svc, logs := newService(t, t.TempDir())
	cs := connect(t, svc)

	text := callText(t, cs, "resolve_stack_trace", map[string]any{
		"stackTrace":    nodeTrace,
		"workspaceRoot": filepath.Join(t.TempDir(), "missing"),
	})

	var got stacktrace.Result
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, stacktrace.NodeJS, got.Dialect)
	assert.Len(t, got.Frames, 2)
	assert.Nil(t, got.EntryFrame)

	assert.Equal(t, 1, logs.FilterMessage("workspace root is not a directory, frames will not resolve").Len())
}

func TestResolveStackTrace_MissingArgument(t *testing.T) {
	svc, _ := newService(t, t.TempDir())
	cs := connect(t, svc)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_stack_trace",
		Arguments: map[string]any{},
	})
	assert.True(t, err != nil || res.IsError, "expected missing stackTrace to be rejected")
}

func TestDetectStackFormat(t *testing.T) {
	svc, _ := newService(t, t.TempDir())
	cs := connect(t, svc)

	assert.Equal(t, "python", callText(t, cs, "detect_stack_format", map[string]any{
		"stackTrace": `  File "x.py", line 1, in <module>`,
	}))
	assert.Equal(t, "unknown", callText(t, cs, "detect_stack_format", map[string]any{
		"stackTrace": "hello",
	}))
}

func TestService_UpdateSwapsRules(t *testing.T) {
	root := newWorkspace(t, "services/api/handler.go")
	svc, _ := newService(t, root)
	cs := connect(t, svc)

	trace := "goroutine 1 [running]:\nmain.main()\n\t/srv/api/handler.go:12 +0x1d"

	var before stacktrace.Result
	require.NoError(t, json.Unmarshal([]byte(callText(t, cs, "resolve_stack_trace", map[string]any{
		"stackTrace": trace,
	})), &before))
	assert.Nil(t, before.EntryFrame)

	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = root
	cfg.Prefixes = append(cfg.Prefixes, config.PrefixRule{Prefix: "/srv/", Replace: "services/"})
	require.NoError(t, svc.Update(cfg))

	var after stacktrace.Result
	require.NoError(t, json.Unmarshal([]byte(callText(t, cs, "resolve_stack_trace", map[string]any{
		"stackTrace": trace,
	})), &after))
	require.NotNil(t, after.EntryFrame)
	assert.Equal(t, []string{"services/api/handler.go"}, after.RelatedFiles)
}

func TestService_UpdateRejectsBadPatterns(t *testing.T) {
	svc, _ := newService(t, "/ws")

	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = "/other"
	cfg.InternalPatterns = []string{"("}

	assert.Error(t, svc.Update(cfg))
	assert.Equal(t, "/ws", svc.WorkspaceRoot(), "failed update must keep the previous state")
}

func TestLoggingMiddleware_TagsRequests(t *testing.T) {
	svc, logs := newService(t, t.TempDir())
	cs := connect(t, svc)

	callText(t, cs, "detect_stack_format", map[string]any{"stackTrace": "x"})

	calls := logs.FilterMessage("response").FilterField(zap.String("method", "tools/call")).All()
	require.Len(t, calls, 1)

	fields := calls[0].ContextMap()
	assert.Equal(t, "ok", fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
