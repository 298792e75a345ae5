// Package patch applies a user-selected override to a task module before it
// runs. A patch is named on the command line with --patch=<name> and is
// either compiled in or found as a <name>.go script on the patch path.
//
// The patch receives the target task name and, depending on its signature,
// the very module that is about to be invoked or that module's settings.
package patch

import (
	"errors"
	"fmt"

	"github.com/StrategyComplex/congress-thetownhall/internal/script"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

var (
	ErrPatchModuleNotFound = errors.New("patch module not found")
	ErrInvalidPatch        = errors.New("invalid patch")
)

// Func is the entry point of a compiled patch.
type Func func(target string, m *task.Module) error

// Applier resolves and applies patches.
type Applier struct {
	compiled map[string]Func
	dirs     []string
}

// NewApplier searches dirs, in order, for script patches.
func NewApplier(dirs ...string) *Applier {
	return &Applier{compiled: make(map[string]Func), dirs: dirs}
}

// Register adds a compiled patch. Registering nil is allowed and makes the
// patch resolvable but invalid, which Apply reports as ErrInvalidPatch.
func (a *Applier) Register(name string, fn Func) {
	if _, exists := a.compiled[name]; exists {
		panic(fmt.Sprintf("patch %s already registered", name))
	}
	a.compiled[name] = fn
}

// Apply runs patch name against target.
func (a *Applier) Apply(name string, target *task.Module) error {
	fn, err := a.resolve(name)
	if err != nil {
		return err
	}
	if err := fn(target.Name, target); err != nil {
		return fmt.Errorf("patch %s: %w", name, err)
	}
	return nil
}

func (a *Applier) resolve(name string) (Func, error) {
	if fn, ok := a.compiled[name]; ok {
		if fn == nil {
			return nil, invalid(name, "entry point is nil")
		}
		return fn, nil
	}

	path, err := script.Find(a.dirs, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPatchModuleNotFound, name)
	}
	prog, err := script.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPatchModuleNotFound, name, err)
	}
	sym, ok := prog.Symbol("Patch")
	if !ok {
		return nil, invalid(name, "Patch does not exist")
	}
	return adapt(name, sym.Interface())
}

// adapt accepts the script signatures a patch may use.
func adapt(name string, v any) (Func, error) {
	switch fn := v.(type) {
	case func(string):
		return func(target string, _ *task.Module) error { fn(target); return nil }, nil
	case func(string) error:
		return func(target string, _ *task.Module) error { return fn(target) }, nil
	case func(string, map[string]string):
		return func(target string, m *task.Module) error { fn(target, m.Settings); return nil }, nil
	case func(string, map[string]string) error:
		return func(target string, m *task.Module) error { return fn(target, m.Settings) }, nil
	}
	return nil, invalid(name, fmt.Sprintf("Patch is %T, not a callable patch function", v))
}

func invalid(name, why string) error {
	return fmt.Errorf("%w: you specified --patch=%s but %s.Patch is not callable or does not exist (%s)", ErrInvalidPatch, name, name, why)
}
