package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

func newNominations() *task.Module { return module(runNominations) }

// runNominations saves the congress.gov page of one nomination, given as
// --nomination-id=<congress>-<number>.
func runNominations(ctx context.Context, env *task.Env, m *task.Module, opts *options.Raw) error {
	raw := firstOf(opts, "nomination-id", "nomination_id")
	if raw == "" {
		return errors.New("nominations: --nomination-id is required")
	}
	congress, number, err := parseNominationID(raw)
	if err != nil {
		return err
	}

	base := m.Setting("base_url", env.Sources.CongressGov)
	u := joinURL(base, "nomination", ordinal(congress)+"-congress", number)
	dest, err := save(ctx, env, "nominations", u, strconv.Itoa(congress), "PN"+number+".html")
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "Saved %s\n", dest)
	return nil
}

// parseNominationID splits "112-1" into congress 112 and number "1". The
// number may carry a part suffix such as "1-2".
func parseNominationID(s string) (int, string, error) {
	c, n, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || n == "" {
		return 0, "", fmt.Errorf("nomination id %q is not of the form 112-1", s)
	}
	congress, err := strconv.Atoi(c)
	if err != nil || congress <= 0 {
		return 0, "", fmt.Errorf("nomination id %q has no valid congress", s)
	}
	return congress, n, nil
}
