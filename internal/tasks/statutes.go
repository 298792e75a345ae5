package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

func newStatutes() *task.Module { return module(runStatutes) }

// runStatutes downloads Statutes at Large package listings, one per volume
// (--volumes) or one per publication year (--years).
func runStatutes(ctx context.Context, env *task.Env, m *task.Module, opts *options.Raw) error {
	api := m.Setting("api_url", env.Sources.GovInfoAPI)
	key := m.Setting("api_key", env.Sources.GovInfoAPIKey)

	if sel := firstOf(opts, "volumes", "volume"); sel != "" {
		vols, err := expandRange(sel)
		if err != nil {
			return fmt.Errorf("statutes --volumes: %w", err)
		}
		for _, v := range vols {
			u := withQuery(joinURL(api, "packages", fmt.Sprintf("STATUTE-%d", v), "summary"), "api_key", key)
			if _, err := save(ctx, env, "statutes", u, "volumes", strconv.Itoa(v)+".json"); err != nil {
				return err
			}
		}
		return nil
	}

	if sel := firstOf(opts, "years", "year"); sel != "" {
		years, err := expandRange(sel)
		if err != nil {
			return fmt.Errorf("statutes --years: %w", err)
		}
		for _, y := range years {
			u := withQuery(joinURL(api, "published", fmt.Sprintf("%d-01-01", y), fmt.Sprintf("%d-12-31", y)),
				"collection", "STATUTE", "offsetMark", "*", "pageSize", "100", "api_key", key)
			if _, err := save(ctx, env, "statutes", u, "years", strconv.Itoa(y)+".json"); err != nil {
				return err
			}
		}
		return nil
	}

	return errors.New("statutes: --volumes or --years is required")
}

// firstOf returns the first non-empty string option among keys.
func firstOf(opts *options.Raw, keys ...string) string {
	for _, k := range keys {
		if v, ok := opts.Get(k); ok && !v.IsBool() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
