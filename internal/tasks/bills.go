package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

var billIDPattern = regexp.MustCompile(`^([a-z]+)(\d+)-(\d+)$`)

// billID is a bill identifier such as hr1-118.
type billID struct {
	Type     string
	Number   string
	Congress string
}

func parseBillID(s string) (billID, error) {
	m := billIDPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return billID{}, fmt.Errorf("bill id %q is not of the form hr1-118", s)
	}
	return billID{Type: m[1], Number: m[2], Congress: m[3]}, nil
}

func newBills() *task.Module { return module(runBills) }

// runBills fetches a single BILLSTATUS file with --bill_id, or walks the
// BILLSTATUS bulk data collection like govinfo --bulkdata=BILLSTATUS.
func runBills(ctx context.Context, env *task.Env, m *task.Module, opts *options.Raw) error {
	base := m.Setting("bulk_url", env.Sources.GovInfoBulk)

	if raw := opts.String("bill_id"); raw != "" {
		id, err := parseBillID(raw)
		if err != nil {
			return err
		}
		file := fmt.Sprintf("BILLSTATUS-%s%s%s.xml", id.Congress, id.Type, id.Number)
		u := joinURL(base, "BILLSTATUS", id.Congress, id.Type, file)
		dest, err := save(ctx, env, "bills", u, id.Congress, id.Type, id.Type+id.Number, "fdsys_billstatus.xml")
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "Saved %s\n", dest)
		return nil
	}

	w := &bulkWalker{env: env, task: "bills", store: strings.ToLower(opts.String("store"))}
	w.limit, _ = opts.Int("limit")
	return w.run(ctx, base, "BILLSTATUS", opts.String("congress"))
}
