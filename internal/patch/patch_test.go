package patch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

func newModule(name string) *task.Module {
	return &task.Module{
		Name:     name,
		Settings: map[string]string{},
		Run:      func(context.Context, *task.Env, *options.Raw) error { return nil },
	}
}

func writePatch(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".go"), []byte(src), 0644))
}

func TestCompiledPatchRebindsRun(t *testing.T) {
	a := NewApplier()
	var calls []string
	a.Register("trace", func(target string, m *task.Module) error {
		calls = append(calls, "patch:"+target)
		orig := m.Run
		m.Run = func(ctx context.Context, env *task.Env, opts *options.Raw) error {
			calls = append(calls, "wrapped")
			return orig(ctx, env, opts)
		}
		return nil
	})

	m := newModule("govinfo")
	require.NoError(t, a.Apply("trace", m))
	require.NoError(t, m.Run(context.Background(), &task.Env{}, options.NewRaw()))
	assert.Equal(t, []string{"patch:govinfo", "wrapped"}, calls)
}

func TestCompiledPatchError(t *testing.T) {
	a := NewApplier()
	boom := errors.New("boom")
	a.Register("fails", func(string, *task.Module) error { return boom })

	err := a.Apply("fails", newModule("bills"))
	assert.ErrorIs(t, err, boom)
}

func TestNilCompiledPatchIsInvalid(t *testing.T) {
	a := NewApplier()
	a.Register("hollow", nil)

	err := a.Apply("hollow", newModule("bills"))
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestMissingPatchModule(t *testing.T) {
	a := NewApplier(t.TempDir())
	err := a.Apply("missing_module", newModule("govinfo"))
	assert.ErrorIs(t, err, ErrPatchModuleNotFound)
	assert.NotErrorIs(t, err, ErrInvalidPatch)
}

func TestScriptPatchMutatesSettings(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "mirror", `package mirror

func Patch(task string, settings map[string]string) {
	settings["base_url"] = "http://mirror.local/" + task
}
`)

	m := newModule("statutes")
	require.NoError(t, NewApplier(dir).Apply("mirror", m))
	assert.Equal(t, "http://mirror.local/statutes", m.Settings["base_url"])
}

func TestScriptPatchNameOnly(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "patched")
	writePatch(t, dir, "touch", `package touch

import "os"

func Patch(task string) error {
	return os.WriteFile(`+"`"+out+"`"+`, []byte(task), 0644)
}
`)

	require.NoError(t, NewApplier(dir).Apply("touch", newModule("votes")))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "votes", string(data))
}

func TestScriptPatchErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "refuse", `package refuse

import "errors"

func Patch(task string) error { return errors.New("not for " + task) }
`)

	err := NewApplier(dir).Apply("refuse", newModule("bills"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not for bills")
	assert.NotErrorIs(t, err, ErrInvalidPatch)
}

func TestScriptWithoutPatchIsInvalid(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "nopatch", "package nopatch\n\nfunc Other() {}\n")

	err := NewApplier(dir).Apply("nopatch", newModule("bills"))
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestScriptPatchNotCallable(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "notfunc", "package notfunc\n\nvar Patch = \"nope\"\n")

	err := NewApplier(dir).Apply("notfunc", newModule("bills"))
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestScriptPatchWrongSignature(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "wrongsig", "package wrongsig\n\nfunc Patch(n int) int { return n }\n")

	err := NewApplier(dir).Apply("wrongsig", newModule("bills"))
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestCompiledPatchWinsOverScript(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, dir, "dual", "package dual\n\nfunc Other() {}\n")

	a := NewApplier(dir)
	hit := false
	a.Register("dual", func(string, *task.Module) error { hit = true; return nil })
	require.NoError(t, a.Apply("dual", newModule("bills")))
	assert.True(t, hit)
}
