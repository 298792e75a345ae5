// Package dispatch runs one usc-run invocation: it parses the arguments,
// configures logging, resolves the task, applies an optional patch and
// invokes the task. Each step is a state; any failure moves to Failed and is
// returned to the caller, which reports it through Terminate.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/StrategyComplex/congress-thetownhall/internal/admin"
	"github.com/StrategyComplex/congress-thetownhall/internal/config"
	"github.com/StrategyComplex/congress-thetownhall/internal/fetch"
	"github.com/StrategyComplex/congress-thetownhall/internal/history"
	"github.com/StrategyComplex/congress-thetownhall/internal/logging"
	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/patch"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

// State is a step of a dispatch.
type State int

const (
	StateStart State = iota
	StateArgsParsed
	StateLoggingConfigured
	StateTaskResolved
	StatePatchApplied
	StateInvoked
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateStart:             "start",
	StateArgsParsed:        "args_parsed",
	StateLoggingConfigured: "logging_configured",
	StateTaskResolved:      "task_resolved",
	StatePatchApplied:      "patch_applied",
	StateInvoked:           "invoked",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ExitError is a failure that has already been reported and only needs the
// process to exit with Code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// LoggerFunc builds the run logger. It defaults to logging.New.
type LoggerFunc func(w io.Writer, level string, withTime bool) (*zap.Logger, error)

// Dispatcher holds everything a dispatch needs. Config, Tasks and Patches
// are required; the rest have defaults.
type Dispatcher struct {
	Config    *config.Config
	Tasks     *task.Registry
	Patches   *patch.Applier
	HTTP      *http.Client
	History   *history.Recorder
	Stdout    io.Writer
	Stderr    io.Writer
	NewLogger LoggerFunc

	trace  []State
	logger *zap.Logger
}

// State returns the current state.
func (d *Dispatcher) State() State {
	if len(d.trace) == 0 {
		return StateStart
	}
	return d.trace[len(d.trace)-1]
}

// Trace returns every state entered by the last dispatch, in order.
func (d *Dispatcher) Trace() []State {
	return append([]State(nil), d.trace...)
}

// Logger is the logger configured by the last dispatch, or a no-op logger
// if it never got that far.
func (d *Dispatcher) Logger() *zap.Logger {
	if d.logger == nil {
		return zap.NewNop()
	}
	return d.logger
}

func (d *Dispatcher) enter(s State) { d.trace = append(d.trace, s) }

// Dispatch runs argv (without the program name) to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, argv []string) (err error) {
	d.trace = nil
	d.logger = nil
	d.enter(StateStart)

	run := &history.Run{StartedAt: time.Now().UTC(), Options: map[string]any{}}
	if len(argv) > 0 {
		run.Task = argv[0]
	}
	defer func() {
		run.EndedAt = time.Now().UTC()
		run.Status = history.StatusCompleted
		if err != nil {
			d.enter(StateFailed)
			run.Status = history.StatusFailed
			run.Error = err.Error()
		} else {
			d.enter(StateDone)
		}
		if recErr := d.History.Record(run); recErr != nil {
			d.Logger().Warn(fmt.Sprintf("recording run history: %s", recErr))
		}
	}()

	req, err := options.Parse(argv)
	if err != nil {
		return err
	}
	d.enter(StateArgsParsed)
	run.DataType = string(req.DataType)
	run.Options = req.Raw.Map()

	logger, err := d.newLogger(req.Flags.Log, req.Flags.Force)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	d.logger = logger
	defer logger.Sync()
	for _, line := range options.Describe(req) {
		fmt.Fprintln(d.stdout(), line)
	}
	d.enter(StateLoggingConfigured)

	mod, err := d.Tasks.Resolve(req.TaskName)
	if err != nil {
		return err
	}
	run.Source = mod.Source
	logger.Debug(fmt.Sprintf("resolved task %s from %s", mod.Name, mod.Source))
	d.enter(StateTaskResolved)

	if v, ok := req.Raw.Get("patch"); ok {
		name := v.String()
		if v.IsBool() {
			name = ""
		}
		run.Patch = name
		logger.Debug(fmt.Sprintf("applying patch %s to %s", name, mod.Name))
		if err := d.Patches.Apply(name, mod); err != nil {
			if errors.Is(err, patch.ErrInvalidPatch) {
				logger.Error(err.Error())
				return &ExitError{Code: 1, Err: err}
			}
			return err
		}
		d.enter(StatePatchApplied)
	}

	env := d.env(logger, req)
	if err := d.Tasks.Invoke(ctx, env, mod, req.Raw); err != nil {
		return err
	}
	d.enter(StateInvoked)
	return nil
}

func (d *Dispatcher) newLogger(level string, withTime bool) (*zap.Logger, error) {
	f := d.NewLogger
	if f == nil {
		f = logging.New
	}
	return f(d.stderr(), level, withTime)
}

func (d *Dispatcher) env(logger *zap.Logger, req *options.Request) *task.Env {
	hc := d.HTTP
	if hc == nil {
		hc = fetch.NewHTTPClient(d.Config.Timeout.Std())
	}
	return &task.Env{
		Logger: logger,
		Fetch: &fetch.Client{
			HTTP:     hc,
			CacheDir: d.Config.CacheDir,
			Force:    req.Flags.Force,
			Logger:   logger,
		},
		Sources: d.Config.Sources,
		DataDir: d.Config.DataDir,
		Stdout:  d.stdout(),
		Timeout: d.Config.Timeout.Std(),
	}
}

func (d *Dispatcher) stdout() io.Writer {
	if d.Stdout == nil {
		return os.Stdout
	}
	return d.Stdout
}

func (d *Dispatcher) stderr() io.Writer {
	if d.Stderr == nil {
		return os.Stderr
	}
	return d.Stderr
}

// ExitCode maps a dispatch error to a process exit status.
func ExitCode(err error) int {
	var exit *ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exit):
		return exit.Code
	case errors.Is(err, options.ErrInvalidDataType), errors.Is(err, options.ErrInvalidFlagValue):
		return 2
	default:
		return 1
	}
}

// Terminate is the single reporting path for a finished dispatch. An
// ExitError is passed through silently; anything else goes to rep.
func Terminate(ctx context.Context, err error, argv []string, rep *admin.Reporter) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if !errors.As(err, &exit) {
		rep.Report(ctx, err, argv)
	}
	return ExitCode(err)
}
