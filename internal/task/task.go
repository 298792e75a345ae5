// Package task resolves task names to runnable modules and invokes them.
//
// Built-in tasks are compiled in and registered by name. A <name>.go script
// in the tasks directory is interpreted instead of the built-in of the same
// name, so a deployment can replace or add a task without rebuilding. Every
// Resolve returns a fresh Module, so a patch applied to it affects only the
// current run.
package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/StrategyComplex/congress-thetownhall/internal/config"
	"github.com/StrategyComplex/congress-thetownhall/internal/fetch"
	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/script"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrUnhandledTaskFailure = errors.New("unhandled task failure")
)

// Env is the runtime context handed to every task. It is built once per
// process and not modified afterwards.
type Env struct {
	Logger  *zap.Logger
	Fetch   *fetch.Client
	Sources config.SourcesConfig
	DataDir string
	Stdout  io.Writer
	Timeout time.Duration
}

// RunFunc is a task entry point. opts is the raw option list as parsed from
// the command line.
type RunFunc func(ctx context.Context, env *Env, opts *options.Raw) error

// Module is a resolved task. Settings is the strategy a patch may change
// before the run; Run itself may also be replaced.
type Module struct {
	Name     string
	Source   string
	Run      RunFunc
	Settings map[string]string
}

// Setting returns Settings[key], or def when unset.
func (m *Module) Setting(key, def string) string {
	if v, ok := m.Settings[key]; ok && v != "" {
		return v
	}
	return def
}

// Factory builds a fresh module for one run.
type Factory func() *Module

// Registry maps task names to factories.
type Registry struct {
	factories  map[string]Factory
	scriptDirs []string
}

// NewRegistry creates an empty registry that falls back to scripts in
// scriptDirs.
func NewRegistry(scriptDirs ...string) *Registry {
	return &Registry{factories: make(map[string]Factory), scriptDirs: scriptDirs}
}

// Register sets the factory for name. It panics if name already exists.
func (r *Registry) Register(name string, f Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("task %s already registered", name))
	}
	r.factories[name] = f
}

// Names lists the compiled-in tasks, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns a new module for name. A script wins over a compiled
// registration; a script that exists but cannot be loaded is an error.
func (r *Registry) Resolve(name string) (*Module, error) {
	if path, err := script.Find(r.scriptDirs, name); err == nil {
		return loadScript(name, path)
	}
	if f, ok := r.factories[name]; ok {
		m := f()
		if m.Name == "" {
			m.Name = name
		}
		if m.Settings == nil {
			m.Settings = make(map[string]string)
		}
		if m.Source == "" {
			m.Source = "builtin"
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
}

// Invoke runs m with opts. Errors returned by the task pass through
// unchanged; a panic becomes a *PanicError.
func (r *Registry) Invoke(ctx context.Context, env *Env, m *Module, opts *options.Raw) (err error) {
	if m.Run == nil {
		return fmt.Errorf("%w: task %s has no entry point", ErrUnhandledTaskFailure, m.Name)
	}
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Task: m.Name, Value: v, Stack: debug.Stack()}
		}
	}()
	return m.Run(ctx, env, opts)
}

// PanicError reports a task that panicked instead of returning.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}

func (e *PanicError) Unwrap() error { return ErrUnhandledTaskFailure }

// loadScript wraps an interpreted Run function as a module. The script sees
// the options as a plain map and may also receive the settings.
func loadScript(name, path string) (*Module, error) {
	prog, err := script.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", name, err)
	}
	sym, ok := prog.Symbol("Run")
	if !ok {
		return nil, fmt.Errorf("%w: %s defines no Run function", ErrTaskNotFound, filepath.Base(path))
	}

	m := &Module{Name: name, Source: path, Settings: make(map[string]string)}
	switch fn := sym.Interface().(type) {
	case func(map[string]interface{}) error:
		m.Run = func(_ context.Context, _ *Env, opts *options.Raw) error { return fn(opts.Map()) }
	case func(map[string]interface{}):
		m.Run = func(_ context.Context, _ *Env, opts *options.Raw) error { fn(opts.Map()); return nil }
	case func(map[string]interface{}, map[string]string) error:
		m.Run = func(_ context.Context, _ *Env, opts *options.Raw) error { return fn(opts.Map(), m.Settings) }
	default:
		return nil, fmt.Errorf("%w: %s Run has signature %T, want func(map[string]interface{}) error", ErrTaskNotFound, filepath.Base(path), fn)
	}
	return m, nil
}
