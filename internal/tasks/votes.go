package tasks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

func newVotes() *task.Module { return module(runVotes) }

// runVotes saves the House roll call index for each selected year. Years
// come from --years, else from the two years of --congress, else the
// current year.
func runVotes(ctx context.Context, env *task.Env, m *task.Module, opts *options.Raw) error {
	years, err := voteYears(opts, time.Now())
	if err != nil {
		return err
	}
	base := m.Setting("base_url", env.Sources.HouseClerk)
	for _, y := range years {
		u := joinURL(base, "evs", strconv.Itoa(y), "index.asp")
		if _, err := save(ctx, env, "votes", u, strconv.Itoa(y), "index.html"); err != nil {
			return err
		}
	}
	return nil
}

func voteYears(opts *options.Raw, now time.Time) ([]int, error) {
	if sel := firstOf(opts, "years", "year"); sel != "" {
		years, err := expandRange(sel)
		if err != nil {
			return nil, fmt.Errorf("votes --years: %w", err)
		}
		return years, nil
	}
	if c := opts.String("congress"); c != "" && !opts.Bool("congress") {
		n, err := strconv.Atoi(c)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("votes --congress: %q is not a congress number", c)
		}
		return congressYears(n), nil
	}
	return []int{now.Year()}, nil
}
