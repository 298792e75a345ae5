package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

// bulkListing is the JSON form of a GovInfo bulk data directory.
type bulkListing struct {
	Files []bulkFile `json:"files"`
}

type bulkFile struct {
	Name      string `json:"justFileName"`
	Link      string `json:"link"`
	Folder    bool   `json:"folder"`
	Extension string `json:"fileExtension"`
}

// maxBulkDepth bounds how far a bulk data walk descends into folders.
const maxBulkDepth = 6

func newGovInfo() *task.Module { return module(runGovInfo) }

func runGovInfo(ctx context.Context, env *task.Env, m *task.Module, opts *options.Raw) error {
	api := m.Setting("api_url", env.Sources.GovInfoAPI)
	key := m.Setting("api_key", env.Sources.GovInfoAPIKey)

	switch {
	case opts.Bool("list"):
		_, err := save(ctx, env, "govinfo", withQuery(joinURL(api, "collections"), "api_key", key), "collections.json")
		return err
	case opts.String("bulkdata") != "":
		w := &bulkWalker{env: env, task: "govinfo", store: strings.ToLower(opts.String("store"))}
		w.limit, _ = opts.Int("limit")
		return w.run(ctx, m.Setting("bulk_url", env.Sources.GovInfoBulk), opts.String("bulkdata"), opts.String("congress"))
	case opts.String("collections") != "":
		for _, c := range strings.Split(opts.String("collections"), ",") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			u := withQuery(joinURL(api, "collections", c, "1990-01-01T00:00:00Z"),
				"offsetMark", "*", "pageSize", "100", "api_key", key)
			if _, err := save(ctx, env, "govinfo", u, "collections", c+".json"); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.New("govinfo: one of --list, --bulkdata or --collections is required")
}

// bulkWalker downloads the files of a bulk data collection.
type bulkWalker struct {
	env   *task.Env
	task  string
	store string
	limit int
	saved int
}

func (w *bulkWalker) run(ctx context.Context, base, collection, congress string) error {
	segments := []string{"json", collection}
	rel := []string{collection}
	if congress != "" {
		segments = append(segments, congress)
		rel = append(rel, congress)
	}
	return w.walk(ctx, joinURL(base, segments...), rel, 0)
}

func (w *bulkWalker) done() bool { return w.limit > 0 && w.saved >= w.limit }

func (w *bulkWalker) walk(ctx context.Context, listingURL string, rel []string, depth int) error {
	if depth > maxBulkDepth {
		return fmt.Errorf("bulk data listing %s nested too deeply", listingURL)
	}
	data, err := w.env.Fetch.Get(ctx, listingURL)
	if err != nil {
		return err
	}
	var listing bulkListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return fmt.Errorf("parsing bulk data listing %s: %w", listingURL, err)
	}

	for _, f := range listing.Files {
		if w.done() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		link, err := resolveLink(listingURL, f.Link)
		if err != nil {
			return err
		}
		if f.Folder {
			if err := w.walk(ctx, link, extend(rel, f.Name), depth+1); err != nil {
				return err
			}
			continue
		}
		if !w.wanted(f) {
			w.env.Logger.Debug(fmt.Sprintf("skipping %s", f.Name))
			continue
		}
		dest, err := save(ctx, w.env, w.task, fileLink(link), extend(rel, f.Name)...)
		if err != nil {
			return err
		}
		w.saved++
		w.env.Logger.Debug("downloaded", zap.String("path", dest))
	}
	return nil
}

// wanted applies --store: the file extension or name must mention it.
func (w *bulkWalker) wanted(f bulkFile) bool {
	if w.store == "" {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(f.Extension, "."))
	if ext == "" {
		ext = strings.ToLower(strings.TrimPrefix(path.Ext(f.Name), "."))
	}
	return ext == w.store || strings.Contains(strings.ToLower(f.Name), w.store)
}

// fileLink turns a JSON listing link for a file into the file itself.
func fileLink(link string) string {
	return strings.Replace(link, "/bulkdata/json/", "/bulkdata/", 1)
}

// extend copies rel and adds name, reduced to its last element so a listing
// cannot write outside the task directory.
func extend(rel []string, name string) []string {
	return append(append([]string(nil), rel...), path.Base("/"+name))
}

func resolveLink(base, link string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", base, err)
	}
	l, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing link %q: %w", link, err)
	}
	return b.ResolveReference(l).String(), nil
}
