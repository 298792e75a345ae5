// Package script loads Go source files at run time with the yaegi
// interpreter. Tasks and patches that are not compiled into usc-run are found
// as <name>.go files on a search path and evaluated here.
package script

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ErrNotFound is returned by Find when no directory holds the module.
var ErrNotFound = errors.New("script not found")

// Program is one evaluated source file.
type Program struct {
	Path    string
	Package string
	interp  *interp.Interpreter
}

// Find locates module in dirs. Dots in the module name separate path
// elements, so "patches.senate" resolves to patches/senate.go. The first
// directory that has the file wins.
func Find(dirs []string, module string) (string, error) {
	if module == "" || strings.ContainsAny(module, `/\`) || strings.Contains(module, "..") {
		return "", fmt.Errorf("%w: invalid module name %q", ErrNotFound, module)
	}
	rel := filepath.Join(strings.Split(module, ".")...) + ".go"
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched %s)", ErrNotFound, module, strings.Join(dirs, ", "))
}

// Load reads and evaluates the file at path.
func Load(path string) (prog *Program, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.PackageClauseOnly)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}

	// The interpreter panics on some malformed programs.
	defer func() {
		if r := recover(); r != nil {
			prog, err = nil, fmt.Errorf("evaluating %s: %v", path, r)
		}
	}()
	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", path, err)
	}

	return &Program{Path: path, Package: f.Name.Name, interp: i}, nil
}

// Symbol returns the package-level identifier name. ok is false when the
// program does not define it.
func (p *Program) Symbol(name string) (v reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = reflect.Value{}, false
		}
	}()
	v, err := p.interp.Eval(p.Package + "." + name)
	if err != nil || !v.IsValid() {
		return reflect.Value{}, false
	}
	return v, true
}
