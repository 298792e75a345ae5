// Package tasks holds the compiled-in usc-run tasks.
//
// Every task reads its source URLs from module settings first and the
// configured sources second, so a patch can redirect a run by changing a
// setting. Downloads go through env.Fetch and land under
// <data dir>/<task name>.
package tasks

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

// Register adds the built-in tasks to r.
func Register(r *task.Registry) {
	r.Register("govinfo", newGovInfo)
	r.Register("bills", newBills)
	r.Register("statutes", newStatutes)
	r.Register("nominations", newNominations)
	r.Register("votes", newVotes)
	r.Register("committee_meetings", newCommitteeMeetings)
}

// module builds a fresh compiled module whose run function can see the
// module itself, and therefore any settings a patch changed.
func module(run func(ctx context.Context, env *task.Env, m *task.Module, opts *options.Raw) error) *task.Module {
	m := &task.Module{Settings: make(map[string]string)}
	m.Run = func(ctx context.Context, env *task.Env, opts *options.Raw) error {
		return run(ctx, env, m, opts)
	}
	return m
}

// save downloads u to <data dir>/<task>/<rel>.
func save(ctx context.Context, env *task.Env, taskName, u string, rel ...string) (string, error) {
	dest := filepath.Join(append([]string{env.DataDir, taskName}, rel...)...)
	if err := env.Fetch.Download(ctx, u, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// joinURL appends path segments to base.
func joinURL(base string, segments ...string) string {
	u := strings.TrimRight(base, "/")
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return u
}

// withQuery adds query parameters to u, skipping empty values.
func withQuery(u string, kv ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	if len(q) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + q.Encode()
}

// maxRange bounds how many numbers a single selector may expand to.
const maxRange = 1000

// expandRange turns "65-86", "1951" or "65,70,80-82" into the listed
// numbers, in order.
func expandRange(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("bad range %q: %w", part, err)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("bad range %q: %w", part, err)
			}
		}
		if end < start {
			return nil, fmt.Errorf("bad range %q: end before start", part)
		}
		if end-start >= maxRange-len(out) {
			return nil, fmt.Errorf("range %q selects more than %d items", s, maxRange)
		}
		for n := start; n <= end; n++ {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty range %q", s)
	}
	return out, nil
}

// congressYears returns the two calendar years of a Congress.
func congressYears(congress int) []int {
	first := 1787 + 2*congress
	return []int{first, first + 1}
}

// ordinal renders 112 as "112th" and 101 as "101st".
func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
