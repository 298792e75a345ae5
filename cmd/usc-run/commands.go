package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StrategyComplex/congress-thetownhall/internal/config"
	"github.com/StrategyComplex/congress-thetownhall/internal/history"
)

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent task runs",
		Long:  "List the most recent dispatches recorded in the run history, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := &history.Recorder{Path: cfg.HistoryFile}
			runs, err := rec.Recent(limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), history.Format(runs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent runs to display")
	return cmd
}

// Shell completion (bash, zsh, fish, powershell) via Cobra's built-in generator
func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate a shell completion script for usc-run.

To load completions:

Bash:
  $ source <(usc-run completion bash)

Zsh:
  $ usc-run completion zsh > "${fpath[1]}/_usc-run"

Fish:
  $ usc-run completion fish | source

PowerShell:
  PS> usc-run completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
