package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_IsInternal(t *testing.T) {
	c := DefaultClassifier()

	internal := []string{
		"node_modules/lib/index.js",
		"/app/node_modules/express/lib/router/index.js",
		"/usr/lib/python3.11/json/__init__.py",
		"/usr/local/lib/python3.12/site-packages/requests/api.py",
		"/home/u/.venv/lib/python3.11/site-packages/flask/app.py",
		"/usr/lib/python3/dist-packages/yaml/__init__.py",
		"/root/go/pkg/mod/github.com/spf13/cobra@v1.10.2/command.go",
		"/usr/local/go/src/runtime/panic.go",
		"/home/u/.cargo/registry/src/index/serde-1.0.0/src/de.rs",
		"/usr/local/bundle/gems/rack-3.0.8/lib/rack.rb",
		"vendor/bundle/ruby/3.2.0/gems/x/lib/x.rb",
		"native",
		"internal",
		"<anonymous>",
		"<frozen importlib._bootstrap>",
		"node:internal/process/task_queues",
	}
	for _, path := range internal {
		assert.True(t, c.IsInternal(path), "expected %q to be internal", path)
	}

	application := []string{
		"src/app.ts",
		"/app/pkg/mod.py",
		"App.java",
		"main.go",
		"internal/server/server.go",
		"/home/runner/work/repo/repo/lib/x.rb",
		"nativeModule.js",
	}
	for _, path := range application {
		assert.False(t, c.IsInternal(path), "expected %q to be application code", path)
	}
}

func TestNewClassifier_ExtraPatterns(t *testing.T) {
	c, err := NewClassifier(`/third_party/`, `^generated/`)
	require.NoError(t, err)

	assert.True(t, c.IsInternal("lib/third_party/x.js"))
	assert.True(t, c.IsInternal("generated/api.pb.go"))
	assert.True(t, c.IsInternal("node_modules/a.js"))
	assert.False(t, c.IsInternal("src/generated/api.go"))

	_, err = NewClassifier(`(`)
	assert.ErrorContains(t, err, "invalid internal pattern")
}
