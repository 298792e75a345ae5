package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/StrategyComplex/congress-thetownhall/internal/admin"
	"github.com/StrategyComplex/congress-thetownhall/internal/config"
	"github.com/StrategyComplex/congress-thetownhall/internal/dispatch"
	"github.com/StrategyComplex/congress-thetownhall/internal/fetch"
	"github.com/StrategyComplex/congress-thetownhall/internal/history"
	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/patch"
	"github.com/StrategyComplex/congress-thetownhall/internal/suggest"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
	"github.com/StrategyComplex/congress-thetownhall/internal/tasks"
)

var version = "dev"

// newRootCmd builds the command tree. The root command does not parse its
// own flags: the whole argument list goes to the dispatcher, which is the
// only place options are validated. Flags are still declared so that help
// lists them.
func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "usc-run <data_type> [flags]",
		Short: "Fetch and process United States Congress data",
		Long: `usc-run dispatches a data task (bills, statutes, votes, ...) by name.

The first argument selects the task. Declared flags are validated; any other
--key[=value] option, including --patch=<module>, is passed to the task as is.`,
		Version:            version,
		Args:               cobra.ArbitraryArgs,
		ValidArgsFunction:  completeArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return cmd.Help()
			}
			if slices.Contains(args, "--version") {
				fmt.Fprintf(cmd.OutOrStdout(), "usc-run version %s\n", version)
				return nil
			}
			d := newDispatcher(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return d.Dispatch(cmd.Context(), args)
		},
	}

	var usage options.Flags
	options.Declare(root.Flags(), &usage)

	root.AddCommand(newHistoryCmd(cfg))
	root.AddCommand(newCompletionCmd(root))
	return root
}

// newDispatcher wires the compiled tasks, the script directories and the
// run history into a dispatcher.
func newDispatcher(cfg *config.Config, stdout, stderr io.Writer) *dispatch.Dispatcher {
	reg := task.NewRegistry(cfg.TasksDir)
	tasks.Register(reg)
	return &dispatch.Dispatcher{
		Config:  cfg,
		Tasks:   reg,
		Patches: patch.NewApplier(cfg.PatchDirs...),
		HTTP:    fetch.NewHTTPClient(cfg.Timeout.Std()),
		History: &history.Recorder{Path: cfg.HistoryFile},
		Stdout:  stdout,
		Stderr:  stderr,
	}
}

func wantsHelp(args []string) bool {
	return slices.Contains(args, "-h") || slices.Contains(args, "--help")
}

// completeArgs completes data types for the first argument and --flag=value
// pairs after it, using the suggestion table. Flag names are completed by
// cobra from the declared flags.
func completeArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	dataType := firstPositional(args)

	if strings.HasPrefix(toComplete, "--") {
		name, prefix, ok := strings.Cut(toComplete[2:], "=")
		if !ok {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		s := suggest.Suggest(name, options.DataType(dataType), prefix)
		if !s.Applicable {
			return nil, cobra.ShellCompDirectiveError
		}
		out := make([]string, 0, len(s.Candidates))
		for _, c := range s.Candidates {
			out = append(out, "--"+name+"="+c)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}

	if dataType != "" || strings.HasPrefix(toComplete, "-") {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, name := range options.DataTypeNames() {
		if strings.HasPrefix(name, toComplete) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func firstPositional(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}

// loadConfig finds and reads usc-run.yaml. Defaults are relative to the
// directory holding the executable.
func loadConfig() (*config.Config, error) {
	base := "."
	if exe, err := os.Executable(); err == nil {
		base = filepath.Dir(exe)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	path, err := config.Discover(wd)
	if err != nil {
		return nil, err
	}
	return config.Load(path, base)
}

// run executes argv and returns the process exit code. Every failure goes
// through dispatch.Terminate exactly once.
func run(ctx context.Context, cfg *config.Config, argv []string, stdout, stderr io.Writer) int {
	rep := &admin.Reporter{
		Stderr:     stderr,
		LogFile:    cfg.Admin.LogFile,
		WebhookURL: cfg.Admin.WebhookURL,
		HTTP:       fetch.NewHTTPClient(cfg.Timeout.Std()),
	}

	root := newRootCmd(cfg)
	root.SetArgs(argv)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	return dispatch.Terminate(ctx, err, argv, rep)
}

func Execute() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "usc-run: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
