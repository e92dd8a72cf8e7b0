package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tracklint/internal/syntax"
)

const hooksSource = `import { createSignal, createEffect } from "solid-js";

export function useDebounced(fn, ms) {
  return fn;
}

export function watchValue(fn) {
  createEffect(fn);
}

const helper = () => 1;
`

// parseJS is a test helper that parses JavaScript using tree-sitter
// directly and registers it in a Runtime's source store.
func parseJS(t *testing.T, src string) (*sitter.Tree, *Runtime) {
	t.Helper()

	rt := NewRuntime("")
	lang, ok := syntax.GrammarFor(syntax.JavaScript)
	require.True(t, ok)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	rt.sources.store(tree, []byte(src), lang)
	return tree, rt
}

func TestSourceStore_Lookup(t *testing.T) {
	t.Parallel()
	tree, rt := parseJS(t, hooksSource)
	defer tree.Close()

	fn := tree.RootNode().NamedChild(1)
	require.NotNil(t, fn)

	src, ok := rt.sources.sourceForNode(fn)
	require.True(t, ok)
	assert.Equal(t, hooksSource, string(src))

	_, ok = rt.sources.languageForNode(fn)
	assert.True(t, ok)
}

// --- Risor integration tests (via RunSource) ---

func TestRunSource_ParseSrcAndQuery(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	script := `
tree := parse_src(source, "javascript")
root := tree.RootNode()
assert(root.Type() == "program", "expected program")

names := []
for _, m := range query("(function_declaration name: (identifier) @name)", root) {
    names.append(node_text(m["name"]))
}
names
`
	got, err := rt.RunSource(context.Background(), script, map[string]any{
		"source": hooksSource,
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"useDebounced", "watchValue"}, got)
}

func TestRunSource_ParseInfersDialect(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "App.tsx")
	require.NoError(t, os.WriteFile(path, []byte("const App = () => <div>{1}</div>;\n"), 0o644))

	rt := NewRuntime("")
	script := `
tree := parse(path)
root := tree.RootNode()
matches := query("(jsx_expression) @expr", root)
len(matches)
`
	got, err := rt.RunSource(context.Background(), script, map[string]any{"path": path})
	require.NoError(t, err)
	assert.EqualValues(t, 1, got)
}

func TestRunSource_ParseUnknownExtension(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	_, err := rt.RunSource(context.Background(), `parse("notes.txt")`, nil)
	require.Error(t, err)
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	script := `
tree := parse_src("let x = 1;", "javascript")
query("(not_a_real_node_type) @x", tree.RootNode())
`
	_, err := rt.RunSource(context.Background(), script, nil)
	require.Error(t, err)
}

func TestRunSource_NodeChild(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	script := `
tree := parse_src("function f(a) { return a; }", "javascript")
fn := tree.RootNode().NamedChild(0)
assert(node_text(node_child(fn, "name")) == "f", "expected name f")
node_child(fn, "no_such_field")
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunSource_DialectAndRules(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	got, err := rt.RunSource(context.Background(), `[dialect("a.tsx"), dialect("b.mjs"), dialect("c.d.ts")]`, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"tsx", "javascript", nil}, got)

	got, err = rt.RunSource(context.Background(), `rules()`, nil)
	require.NoError(t, err)
	assert.Contains(t, got, "untracked-read")
	assert.Contains(t, got, "async-tracked-scope")
}

func TestRunSource_ResultMap(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	script := `
hooks := ["watch"]
hooks.append("observe")
result := {"custom_hooks": hooks, "exclude": ["dist/**"]}
result
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"custom_hooks": []any{"watch", "observe"},
		"exclude":      []any{"dist/**"},
	}, got)
}

func TestRunSource_LogBridgesToSlog(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt := NewRuntime("", WithRuntimeLogger(logger))

	_, err := rt.RunSource(context.Background(), `log.Warn("hooks discovered")`, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="hooks discovered"`)
	assert.Contains(t, buf.String(), "source=script")
}

func TestRunSource_ScriptError(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	_, err := rt.RunSource(context.Background(), `assert(false, "boom")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime: script <inline>")
}

func TestRunScript_LoadsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hooks.risor"), []byte(`1 + 1`), 0o644))

	rt := NewRuntime(dir)
	got, err := rt.RunScript(context.Background(), "hooks.risor", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got)
}

func TestRunScript_MissingFile(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(t.TempDir())
	_, err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestRunScript_FromFS(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"test.risor": &fstest.MapFile{Data: []byte(`"ok"`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))
	got, err := rt.RunScript(context.Background(), "/test.risor", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()
	// Risor's FSImporter resolves "hook_names" by trying name + ".risor".
	mapFS := fstest.MapFS{
		"hook_names.risor": &fstest.MapFile{Data: []byte(`
func names() {
	return ["watch", "observe"]
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import hook_names
hook_names.names()
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"watch", "observe"}, got)
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	t.Parallel()
	// If global names aren't passed to the importer, the module fails to compile.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helper.risor"), []byte(`
func do_log(msg) {
	log.Info(msg)
}
`), 0o644))

	rt := NewRuntime(dir)
	script := `
import helper
helper.do_log("test message")
`
	_, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}
