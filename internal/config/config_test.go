package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tracklint/internal/diag"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()
	c, err := Load(viper.New(), "", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "text", c.Format)
	assert.Equal(t, DefaultDB, c.DB)
	assert.True(t, c.Parallel)
	assert.Empty(t, c.CustomHooks)
	assert.Empty(t, c.File)
	assert.Nil(t, c.Kinds())
}

func TestLoad_ConfigFileInDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, ".tracklint.yaml", `
custom-hooks: [watch, observe]
exclude: ["legacy/**"]
checks: [untracked-read, illegal-mutation]
format: json
script: hooks.risor
`)

	c, err := Load(viper.New(), "", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"watch", "observe"}, c.CustomHooks)
	assert.Equal(t, []string{"legacy/**"}, c.Exclude)
	assert.Equal(t, "json", c.Format)
	assert.Equal(t, []diag.Kind{diag.KindUntrackedRead, diag.KindIllegalMutation}, c.Kinds())
	assert.Equal(t, filepath.Join(dir, ".tracklint.yaml"), c.File)
	assert.Equal(t, filepath.Join(dir, "hooks.risor"), c.Script)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	t.Parallel()
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: reading config")
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TRACKLINT_CUSTOM_HOOKS", "watch,observe")
	t.Setenv("TRACKLINT_NO_CACHE", "true")

	c, err := Load(viper.New(), "", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"watch", "observe"}, c.CustomHooks)
	assert.True(t, c.NoCache)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, ".tracklint.yaml", "format: xml\n")
	_, err := Load(viper.New(), "", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)

	dir = t.TempDir()
	writeFile(t, dir, ".tracklint.yaml", "checks: [no-such-check]\n")
	_, err = Load(viper.New(), "", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown check "no-such-check"`)
}

func TestHash(t *testing.T) {
	t.Parallel()
	a := &Config{CustomHooks: []string{"watch", "observe"}}
	b := &Config{CustomHooks: []string{"observe", "watch"}, Format: "json", Exclude: []string{"x"}}
	c := &Config{CustomHooks: []string{"watch"}}
	d := &Config{CustomHooks: []string{"watch", "observe"}, Checks: []string{"untracked-read"}}

	assert.Equal(t, a.Hash(), b.Hash(), "order and output settings do not matter")
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.NotEqual(t, a.Hash(), d.Hash())
	assert.Equal(t, []string{"watch", "observe"}, a.CustomHooks, "Hash must not reorder")
}

func TestApplyScript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	hooksFile := writeFile(t, dir, "hooks.js", `export function watchValue(fn) {}
export function observeValue(fn) {}
export const notAHook = 1;
`)
	script := writeFile(t, dir, "hooks.risor", `
tree := parse("`+hooksFile+`")
hooks := config["custom_hooks"]
for _, m := range query("(function_declaration name: (identifier) @name)", tree.RootNode()) {
    hooks.append(node_text(m["name"]))
}
log.Info("discovered hooks")
result := {"custom_hooks": hooks, "exclude": ["generated/**"]}
result
`)

	c := &Config{Format: "text", CustomHooks: []string{"watch"}, Script: script}
	require.NoError(t, c.ApplyScript(context.Background(), nil))
	assert.Equal(t, []string{"watch", "watchValue", "observeValue"}, c.CustomHooks)
	assert.Equal(t, []string{"generated/**"}, c.Exclude)
}

func TestApplyScript_NilResult(t *testing.T) {
	t.Parallel()
	script := writeFile(t, t.TempDir(), "noop.risor", "nil\n")
	c := &Config{Format: "text", CustomHooks: []string{"watch"}, Script: script}
	require.NoError(t, c.ApplyScript(context.Background(), nil))
	assert.Equal(t, []string{"watch"}, c.CustomHooks)
}

func TestApplyScript_BadResult(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name   string
		script string
	}{
		{"not a map", `["watch"]`},
		{"not a list", `{"custom_hooks": "watch"}`},
		{"not strings", `{"custom_hooks": [1, 2]}`},
		{"unknown key", `{"rules": ["x"]}`},
	}
	for i, tt := range tests {
		script := writeFile(t, dir, tt.name+".risor", "result := "+tt.script+"\nresult\n")
		c := &Config{Format: "text", Script: script}
		err := c.ApplyScript(context.Background(), nil)
		require.Error(t, err, "case %d: %s", i, tt.name)
		assert.True(t, errors.Is(err, ErrBadScriptResult), tt.name)
	}
}

func TestApplyScript_InvalidCheck(t *testing.T) {
	t.Parallel()
	script := writeFile(t, t.TempDir(), "checks.risor", "result := {\"checks\": [\"bogus\"]}\nresult\n")
	c := &Config{Format: "text", Script: script}
	err := c.ApplyScript(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBadScriptResult))
	assert.Contains(t, err.Error(), `unknown check "bogus"`)
}

func TestApplyScript_NoScript(t *testing.T) {
	t.Parallel()
	c := &Config{Format: "text"}
	require.NoError(t, c.ApplyScript(context.Background(), nil))
}
